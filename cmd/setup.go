package cmd

import (
	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/bridge"
	"github.com/WaywardWizard/cuenim/pkg/registry"
	"github.com/WaywardWizard/cuenim/pkg/schema"
	"github.com/WaywardWizard/cuenim/pkg/selector"
	"github.com/WaywardWizard/cuenim/pkg/store"
	"github.com/WaywardWizard/cuenim/pkg/toolchain"
)

// newRunResolver wires a run-phase resolver from the settings: snapshot
// applied into the build buckets first, then every declared source
// registered.
func newRunResolver(settings schema.Settings) (*registry.Resolver, error) {
	ctx, err := selector.NewContext(schema.PhaseRun, "")
	if err != nil {
		return nil, err
	}
	ctx.FollowLinks = settings.FollowLinks

	st := store.New(schema.PhaseRun)
	if err := bridge.LoadSnapshot(st, settings.SnapshotPath); err != nil {
		return nil, err
	}

	resolver := registry.NewResolver(ctx, st,
		&toolchain.ExecTranslator{Bin: settings.TranslatorBin},
		&toolchain.ExecDecryptor{Bin: settings.DecryptorBin})

	if err := registerSources(resolver.Registry(), settings.Sources); err != nil {
		return nil, err
	}
	return resolver, nil
}

// newBuildResolver wires a build-phase resolver rooted at the project
// directory, for committing the cross-phase snapshot.
func newBuildResolver(settings schema.Settings, projectRoot string) (*registry.Resolver, error) {
	if projectRoot == "" {
		projectRoot = settings.ProjectRoot
	}
	ctx, err := selector.NewContext(schema.PhaseBuild, projectRoot)
	if err != nil {
		return nil, err
	}
	ctx.FollowLinks = settings.FollowLinks

	resolver := registry.NewResolver(ctx, store.New(schema.PhaseBuild),
		&toolchain.ExecTranslator{Bin: settings.TranslatorBin},
		&toolchain.ExecDecryptor{Bin: settings.DecryptorBin})

	if err := registerSources(resolver.Registry(), settings.Sources); err != nil {
		return nil, err
	}
	return resolver, nil
}

func registerSources(reg *registry.Registry, sources []schema.SourceSetting) error {
	for _, s := range sources {
		switch {
		case s.Prefix != "":
			reg.RegisterEnvPrefix(registry.EnvPrefix{
				Prefix:        s.Prefix,
				CaseSensitive: s.CaseSensitive,
				DotenvFile:    s.DotenvFile,
			})

		case s.Path != "":
			sel, err := selector.NewLiteral(s.Path, selectorOptions(s)...)
			if err != nil {
				return err
			}
			reg.RegisterSelector(sel)

		case s.Pattern != "":
			opts := selectorOptions(s)
			if s.Syntax == "glob" {
				opts = append(opts, selector.WithGlobSyntax())
			}
			sel, err := selector.NewPattern(s.Root, s.Pattern, opts...)
			if err != nil {
				return err
			}
			reg.RegisterSelector(sel)

		default:
			return errUtils.Wrap(errUtils.ErrSelectorConfig,
				"source entry needs one of path, pattern, or prefix")
		}
	}
	return nil
}

func selectorOptions(s schema.SourceSetting) []selector.Option {
	var opts []selector.Option
	if s.Required {
		opts = append(opts, selector.WithRequired())
	}
	if s.UseFallback {
		opts = append(opts, selector.WithFallback())
	}
	return opts
}
