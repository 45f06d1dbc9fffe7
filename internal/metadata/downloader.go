package metadata

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/hashicorp/go-version"

	"computegen/internal/errors"
	"computegen/internal/logger"
)

// LatestRef asks FetchSource for the highest version tag of the remote.
const LatestRef = "latest"

// refMarker records which ref a cached checkout was cloned from.
const refMarker = "computegen-ref"

// FetchSource makes a shallow checkout of url at ref in dest and returns the
// resolved ref. A checkout of the same ref already in dest is reused; one of
// another ref is replaced.
func FetchSource(ctx context.Context, url, ref, dest string) (string, error) {
	log := logger.Named("fetch")

	refs, err := listRemote(ctx, url)
	if err != nil {
		return "", err
	}

	target, err := resolveRef(refs, ref)
	if err != nil {
		return "", err
	}

	if cached, ok := cachedRef(dest); ok {
		if cached == target.String() {
			log.Infow("reusing checkout", "dest", dest, "ref", target.Short())
			return target.Short(), nil
		}
		log.Infow("replacing checkout", "dest", dest, "was", cached, "ref", target.Short())
		if err := os.RemoveAll(dest); err != nil {
			return "", errors.IOWrap(err, "removing", dest)
		}
	} else if !isEmptyDir(dest) {
		return "", errors.WithHint(
			errors.Configurationf("%s exists and is not a computegen checkout", dest),
			"remove it or point repo.cache somewhere else")
	}

	log.Infow("cloning", "url", url, "ref", target.Short(), "dest", dest)
	repo, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: target,
		SingleBranch:  true,
		Depth:         1,
		Tags:          git.NoTags,
	})
	if err != nil {
		return "", errors.Wrapf(err, "cloning %s at %s", url, target.Short())
	}

	if head, err := repo.Head(); err == nil {
		log.Debugw("checked out", "commit", head.Hash().String())
	}
	if err := os.WriteFile(filepath.Join(dest, ".git", refMarker), []byte(target.String()+"\n"), 0o644); err != nil {
		return "", errors.IOWrap(err, "writing", dest)
	}
	return target.Short(), nil
}

func listRemote(ctx context.Context, url string) ([]*plumbing.Reference, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return nil, errors.WithHint(
			errors.Mark(errors.Wrapf(err, "listing %s", url), errors.ErrConfiguration),
			"check repo.url and your network connection")
	}
	return refs, nil
}

// resolveRef maps "latest", a tag or a branch name onto a remote reference.
func resolveRef(refs []*plumbing.Reference, ref string) (plumbing.ReferenceName, error) {
	var tags []string
	byName := make(map[plumbing.ReferenceName]bool, len(refs))
	for _, r := range refs {
		byName[r.Name()] = true
		if r.Name().IsTag() {
			tags = append(tags, r.Name().Short())
		}
	}

	if ref == "" || ref == LatestRef {
		tag, ok := latestTag(tags)
		if !ok {
			return "", errors.Configurationf("remote has no version tags to pick %q from", LatestRef)
		}
		return plumbing.NewTagReferenceName(tag), nil
	}

	for _, name := range []plumbing.ReferenceName{
		plumbing.ReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
		plumbing.NewBranchReferenceName(ref),
	} {
		if byName[name] {
			return name, nil
		}
	}
	return "", errors.Configurationf("ref %q not found on remote", ref)
}

// latestTag returns the release tag with the highest version. Prereleases
// are only considered when the remote has no release tag at all. Tags that
// are not versions are ignored.
func latestTag(tags []string) (string, bool) {
	var releases, prereleases []*version.Version
	for _, tag := range tags {
		v, err := version.NewVersion(strings.TrimSuffix(tag, "^{}"))
		if err != nil {
			continue
		}
		if v.Prerelease() != "" {
			prereleases = append(prereleases, v)
		} else {
			releases = append(releases, v)
		}
	}

	versions := releases
	if len(versions) == 0 {
		versions = prereleases
	}
	if len(versions) == 0 {
		return "", false
	}

	sort.Sort(version.Collection(versions))
	return versions[len(versions)-1].Original(), true
}

func cachedRef(dest string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(dest, ".git", refMarker))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(content)), true
}

func isEmptyDir(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return os.IsNotExist(err)
	}
	return len(entries) == 0
}
