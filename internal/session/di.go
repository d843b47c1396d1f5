package session

import (
	"github.com/samber/do/v2"

	"github.com/foxseedlab/kikitorin/internal/audio"
	"github.com/foxseedlab/kikitorin/internal/config"
	"github.com/foxseedlab/kikitorin/internal/discord"
	"github.com/foxseedlab/kikitorin/internal/transcriber"
	"github.com/foxseedlab/kikitorin/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		transcoder := do.MustInvoke[audio.Transcoder](i)
		merger := do.MustInvoke[audio.Merger](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return NewManager(cfg, dc, stt, transcoder, merger, wh), nil
	})
}
