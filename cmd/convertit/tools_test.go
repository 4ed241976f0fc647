package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertit/internal/app"
	"convertit/internal/gateway"
	"convertit/internal/leads"
)

type scriptedText struct {
	answers []string
	errs    []error
	prompts []string
}

func (s *scriptedText) Text(_ context.Context, p string, _ ...gateway.TextOption) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, p)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.answers[i], err
}

func TestSupportLoop(t *testing.T) {
	gw := &scriptedText{
		answers: []string{"We convert units.", "", ""},
		errs:    []error{nil, nil, errors.New("boom")},
	}
	out := &bytes.Buffer{}

	err := supportLoop(context.Background(), gw, strings.NewReader("what do you do?\n\nhello\nagain\n"), out)
	require.NoError(t, err)

	assert.Equal(t, []string{"what do you do?", "hello", "again"}, gw.prompts)
	text := out.String()
	assert.Contains(t, text, app.SupportGreeting)
	assert.Contains(t, text, "agent> We convert units.")
	assert.Contains(t, text, "agent> "+app.SupportEmptyAnswer)
	assert.Contains(t, text, "agent> "+app.SupportFailure)
}

func TestPrintLeads(t *testing.T) {
	out := &bytes.Buffer{}
	printLeads(out, nil)
	assert.Equal(t, "No leads found.\n", out.String())

	out.Reset()
	printLeads(out, []leads.Lead{{Name: "Acme", URI: "https://acme.example"}})
	assert.Equal(t, " 1. Acme\n    https://acme.example\n", out.String())
}

func TestRequireInput(t *testing.T) {
	assert.ErrorIs(t, requireInput("  \n"), app.ErrEmptyInput)
	assert.NoError(t, requireInput("12"))
}

func TestUserError(t *testing.T) {
	assert.Nil(t, userError(nil))
	assert.EqualError(t, userError(errors.New("API key not valid")), "Auth Error: Invalid API Key.")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "", tail("abc", 3))
	assert.Equal(t, " world", tail("hello world", 5))
}

func TestImageExtension(t *testing.T) {
	assert.Equal(t, ".jpg", imageExtension("image/jpeg"))
	assert.Equal(t, ".png", imageExtension(""))
}
