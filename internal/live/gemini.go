package live

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"convertit/internal/audio"
)

// GeminiRemote opens live sessions through the genai client.
type GeminiRemote struct {
	Client *genai.Client
	Model  string
}

// Connect implements Remote.
func (g *GeminiRemote) Connect(ctx context.Context, cfg ConnectConfig) (RemoteSession, error) {
	if g.Client == nil {
		return nil, fmt.Errorf("live client not configured")
	}
	session, err := g.Client.Live.Connect(ctx, g.Model, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction:  genai.NewContentFromText(cfg.Instruction, genai.RoleUser),
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	})
	if err != nil {
		return nil, err
	}
	return &geminiSession{session: session}, nil
}

type geminiSession struct {
	session *genai.Session
}

func (s *geminiSession) SendAudio(pcm []byte, mimeType string) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: mimeType},
	})
}

func (s *geminiSession) Receive() (Message, error) {
	msg, err := s.session.Receive()
	if err != nil {
		return Message{}, err
	}
	return fromServerMessage(msg), nil
}

func (s *geminiSession) Close() error {
	return s.session.Close()
}

// fromServerMessage keeps the transcription and every inline audio part.
func fromServerMessage(msg *genai.LiveServerMessage) Message {
	var out Message
	if msg == nil || msg.ServerContent == nil {
		return out
	}
	content := msg.ServerContent
	if content.OutputTranscription != nil {
		out.Transcript = content.OutputTranscription.Text
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				out.Audio = append(out.Audio, part.InlineData.Data)
			}
		}
	}
	return out
}

// SystemDevices opens the default capture and playback devices.
type SystemDevices struct{}

// OpenOutput implements Devices.
func (SystemDevices) OpenOutput(rate int) (audio.Output, error) {
	out, err := audio.OpenStream(rate)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OpenMicrophone implements Devices.
func (SystemDevices) OpenMicrophone(rate, frameSize int) (Microphone, error) {
	mic, err := audio.OpenMicrophone(rate, frameSize)
	if err != nil {
		return nil, err
	}
	return mic, nil
}
