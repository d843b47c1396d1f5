package transcriber

import (
	"fmt"

	"github.com/foxseedlab/kikitorin/internal/config"
	transcriberpkg "github.com/foxseedlab/kikitorin/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriberpkg.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranscriberBackend {
		case config.TranscriberBackendCloudSpeech:
			return NewCloudSpeechTranscriber(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			}), nil
		case config.TranscriberBackendWhisperServer:
			return NewWhisperServerTranscriber(c.WhisperServerURL, c.WhisperServerModel), nil
		default:
			return nil, fmt.Errorf("unknown transcriber backend %q", c.TranscriberBackend)
		}
	})
}
