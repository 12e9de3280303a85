package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/qscan/internal/config"
	"github.com/QTest-hq/qscan/internal/github"
)

// scanTarget is a local directory ready to scan plus its git revision
type scanTarget struct {
	Root   string
	Commit string
	Branch string
}

// resolveTarget maps a command argument to a local path. GitHub URLs are
// shallow-cloned under the configured clone directory first.
func resolveTarget(ctx context.Context, cfg *config.Config, arg string) (*scanTarget, error) {
	if !github.IsRemote(arg) {
		target := &scanTarget{Root: arg}
		state, err := github.Describe(arg)
		switch {
		case err == nil:
			target.Commit, target.Branch = state.CommitSHA, state.Branch
		case !errors.Is(err, github.ErrNotRepository):
			log.Debug().Err(err).Str("path", arg).Msg("cannot read git metadata")
		}
		return target, nil
	}

	info, err := github.ParseRepoURL(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid repository URL: %w", err)
	}

	svc := github.NewRepoService(cfg.CloneDir, cfg.GitHubToken)
	clone, err := svc.Clone(ctx, info)
	if err != nil {
		return nil, err
	}

	return &scanTarget{
		Root:   clone.ScanPath(info),
		Commit: clone.CommitSHA,
		Branch: clone.Branch,
	}, nil
}
