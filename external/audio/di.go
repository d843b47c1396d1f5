package audio

import (
	audiopkg "github.com/foxseedlab/kikitorin/internal/audio"
	"github.com/foxseedlab/kikitorin/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audiopkg.Transcoder, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewFFmpegTranscoder(c.FFmpegPath), nil
	})
	do.Provide(injector, func(i do.Injector) (audiopkg.Merger, error) {
		return NewWAVMerger(), nil
	})
}
