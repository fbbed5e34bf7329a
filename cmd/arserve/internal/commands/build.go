package commands

import (
	"github.com/wolfeidau/arserve/internal/assets"
	"github.com/wolfeidau/arserve/internal/logger"
)

type BuildCmd struct {
	Entrypoints string `help:"entry point glob for the demo scripts" default:"ui/*.js"`
	Outdir      string `help:"directory bundles are written to" default:"public"`
	Minify      bool   `help:"minify bundles" default:"true"`
	Sourcemap   bool   `help:"emit source maps" default:"true"`
}

func (b *BuildCmd) Run(globals *Globals) error {
	logger.Setup(globals.Debug)

	pipeline := assets.New(assets.Config{
		EntryPointGlob: b.Entrypoints,
		OutputDir:      b.Outdir,
		Minify:         b.Minify,
		SourceMap:      b.Sourcemap,
	})

	return pipeline.Build()
}
