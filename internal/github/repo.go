package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog/log"
)

// ErrNotRepository is returned by Describe for paths outside a git work tree
var ErrNotRepository = errors.New("not a git repository")

// RepoService handles repository operations
type RepoService struct {
	baseDir string
	token   string
}

// NewRepoService creates a new repository service. Clones are placed
// under baseDir; token, when set, authenticates HTTPS clones.
func NewRepoService(baseDir, token string) *RepoService {
	return &RepoService{
		baseDir: baseDir,
		token:   token,
	}
}

// RepoInfo contains parsed repository information
type RepoInfo struct {
	Owner    string
	Name     string
	URL      string
	CloneURL string
	Branch   string // empty means the remote default
	Subdir   string // path inside the repository to scan
}

// CloneResult contains the result of a clone operation
type CloneResult struct {
	Path      string
	CommitSHA string
	Branch    string
}

// ScanPath returns the directory to scan inside the clone
func (r *CloneResult) ScanPath(info *RepoInfo) string {
	if info == nil || info.Subdir == "" {
		return r.Path
	}
	return filepath.Join(r.Path, filepath.FromSlash(info.Subdir))
}

// RepoState describes the checked-out revision of a work tree
type RepoState struct {
	Root      string
	CommitSHA string
	Branch    string // empty on a detached HEAD
}

// IsRemote reports whether target names a GitHub repository rather than a
// local path
func IsRemote(target string) bool {
	return strings.HasPrefix(target, "https://github.com/") ||
		strings.HasPrefix(target, "http://github.com/") ||
		strings.HasPrefix(target, "git@github.com:")
}

// ParseRepoURL parses a GitHub URL and returns repo info. Browser URLs of
// the form /owner/repo/tree/<branch>/<dir> select a branch and subdirectory.
func ParseRepoURL(rawURL string) (*RepoInfo, error) {
	// Handle git@github.com:owner/repo.git format
	if strings.HasPrefix(rawURL, "git@") {
		parts := strings.Split(rawURL, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid SSH URL format: %s", rawURL)
		}
		pathParts := strings.Split(strings.TrimSuffix(parts[1], ".git"), "/")
		if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
			return nil, fmt.Errorf("invalid repo path: %s", parts[1])
		}
		return &RepoInfo{
			Owner:    pathParts[0],
			Name:     pathParts[1],
			URL:      rawURL,
			CloneURL: fmt.Sprintf("https://github.com/%s/%s.git", pathParts[0], pathParts[1]),
		}, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	if parsed.Host != "github.com" {
		return nil, fmt.Errorf("only github.com URLs are supported, got: %s", parsed.Host)
	}

	pathParts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(pathParts) < 2 || pathParts[0] == "" || pathParts[1] == "" {
		return nil, fmt.Errorf("invalid repo path: %s", parsed.Path)
	}

	owner := pathParts[0]
	name := strings.TrimSuffix(pathParts[1], ".git")

	info := &RepoInfo{
		Owner:    owner,
		Name:     name,
		URL:      rawURL,
		CloneURL: fmt.Sprintf("https://github.com/%s/%s.git", owner, name),
	}

	rest := pathParts[2:]
	if len(rest) > 0 {
		if rest[0] != "tree" || len(rest) < 2 {
			return nil, fmt.Errorf("invalid repo path: %s", parsed.Path)
		}
		info.Branch = rest[1]
		info.Subdir = strings.Join(rest[2:], "/")
	}

	return info, nil
}

// Clone makes a shallow clone of a repository under the service base
// directory, replacing any previous clone of the same repository
func (s *RepoService) Clone(ctx context.Context, info *RepoInfo) (*CloneResult, error) {
	repoDir := filepath.Join(s.baseDir, info.Owner, info.Name)

	if _, err := os.Stat(repoDir); err == nil {
		log.Debug().Str("path", repoDir).Msg("removing existing repo directory")
		if err := os.RemoveAll(repoDir); err != nil {
			return nil, fmt.Errorf("failed to remove existing directory: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(repoDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	log.Info().
		Str("url", info.CloneURL).
		Str("path", repoDir).
		Msg("cloning repository")

	cloneOpts := &git.CloneOptions{
		URL:   info.CloneURL,
		Depth: 1,
	}

	if s.token != "" {
		cloneOpts.Auth = &http.BasicAuth{
			Username: "git", // any non-empty user works with a token
			Password: s.token,
		}
	}

	if info.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(info.Branch)
		cloneOpts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, repoDir, false, cloneOpts)
	if err != nil {
		// the ref may be a tag rather than a branch
		if isMissingRef(err) && info.Branch != "" {
			log.Debug().Str("ref", info.Branch).Msg("branch not found, trying tag")
			_ = os.RemoveAll(repoDir)
			cloneOpts.ReferenceName = plumbing.NewTagReferenceName(info.Branch)
			repo, err = git.PlainCloneContext(ctx, repoDir, false, cloneOpts)
		}
		if err != nil {
			_ = os.RemoveAll(repoDir)
			return nil, fmt.Errorf("failed to clone: %w", err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	result := &CloneResult{
		Path:      repoDir,
		CommitSHA: head.Hash().String(),
		Branch:    head.Name().Short(),
	}
	if !head.Name().IsBranch() {
		// detached at a tag
		result.Branch = info.Branch
	}

	log.Info().
		Str("commit", shortSHA(result.CommitSHA)).
		Str("branch", result.Branch).
		Msg("clone complete")

	return result, nil
}

// isMissingRef reports whether a clone failed because the requested
// branch does not exist on the remote
func isMissingRef(err error) bool {
	return errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.Is(err, git.NoMatchingRefSpecError{})
}

// Describe reports the HEAD commit and branch of the work tree containing
// path. Paths outside a repository return ErrNotRepository.
func Describe(path string) (*RepoState, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("failed to open repo: %w", err)
	}

	state := &RepoState{}
	if wt, err := repo.Worktree(); err == nil {
		state.Root = wt.Filesystem.Root()
	}

	head, err := repo.Head()
	if err != nil {
		// fresh repository without commits
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return state, nil
		}
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	state.CommitSHA = head.Hash().String()
	if head.Name().IsBranch() {
		state.Branch = head.Name().Short()
	}

	return state, nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
