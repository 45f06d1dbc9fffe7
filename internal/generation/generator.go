// Package generation renders compute client proxies and reference docs
// from the descriptor model.
package generation

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"computegen/internal/errors"
	"computegen/internal/logger"
	"computegen/internal/metadata"
)

// Target names one emitter.
type Target string

const (
	JavaScript Target = "javascript"
	Python     Target = "python"
	DotNet     Target = "dotnet"
	Go         Target = "go"
)

// Targets lists every code target in the order runs report them.
var Targets = []Target{JavaScript, Python, DotNet, Go}

// DocVariants are the targets that get reference documentation.
var DocVariants = []Target{JavaScript, Python}

func ParseTarget(name string) (Target, error) {
	for _, t := range Targets {
		if string(t) == strings.ToLower(strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return "", errors.Configurationf("unknown target %q", name)
}

// Options are the values baked into every generated client.
type Options struct {
	Version    string
	ComputeURL string
	// GoPackage names the package of the go target.
	GoPackage string
}

func (o Options) withDefaults() Options {
	if o.Version == "" {
		o.Version = "0.0.0"
	}
	if o.ComputeURL == "" {
		o.ComputeURL = "https://compute.rhino3d.com/"
	}
	if !strings.HasSuffix(o.ComputeURL, "/") {
		o.ComputeURL += "/"
	}
	if o.GoPackage == "" {
		o.GoPackage = "rhinocompute"
	}
	return o
}

// renderedFile is one output held in memory until every file of a target rendered.
type renderedFile struct {
	path    string
	content []byte
}

// Generator collects the classes of one target and writes its files.
type Generator struct {
	Target     Target
	Options    Options
	OutputPath string
	Classes    []*metadata.ClassDescriptor

	registry *metadata.Registry
	files    []renderedFile
	log      *zap.SugaredLogger
}

func NewGenerator(target Target, registry *metadata.Registry, outputPath string, opts Options) *Generator {
	return &Generator{
		Target:     target,
		Options:    opts.withDefaults(),
		OutputPath: outputPath,
		registry:   registry,
		log:        logger.Named(string(target)),
	}
}

func (generator *Generator) Register(classes ...*metadata.ClassDescriptor) {
	generator.Classes = append(generator.Classes, classes...)
}

// Generate renders every registered class and then writes the files. A
// ModelError leaves the output path untouched.
func (generator *Generator) Generate() ([]string, error) {
	generator.files = generator.files[:0]

	var err error
	switch generator.Target {
	case JavaScript:
		err = generator.generateJavaScript()
	case Python:
		err = generator.generatePython()
	case DotNet:
		err = generator.generateDotNet()
	case Go:
		err = generator.generateGo()
	default:
		err = errors.Configurationf("unknown target %q", generator.Target)
	}
	if err != nil {
		return nil, err
	}
	return generator.save()
}

func (generator *Generator) addFile(rel string, content []byte) {
	generator.files = append(generator.files, renderedFile{path: filepath.Join(generator.OutputPath, rel), content: content})
}

func (generator *Generator) save() ([]string, error) {
	written := make([]string, 0, len(generator.files))
	for _, f := range generator.files {
		if err := writeFile(f.path, f.content); err != nil {
			return written, err
		}
		written = append(written, f.path)
	}
	generator.log.Debugw("wrote target", "files", len(written), "classes", len(generator.Classes))
	return written, nil
}

// Emit renders target for the classes of reg selected by patterns (every
// class when patterns is empty) into outputPath.
func Emit(target Target, reg *metadata.Registry, outputPath string, patterns []string, opts Options) ([]string, error) {
	generator := NewGenerator(target, reg, outputPath, opts)
	generator.Register(metadata.Select(reg, patterns)...)
	return generator.Generate()
}

// writeFile replaces path in one step through a temporary sibling.
func writeFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.IOWrap(err, "writing", path)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.IOWrap(err, "writing", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.IOWrap(err, "writing", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.IOWrap(err, "writing", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.IOWrap(err, "writing", path)
	}
	return errors.IOWrap(os.Rename(tmp.Name(), path), "writing", path)
}

// Job is one unit of a generation run: a code target or a doc variant.
type Job struct {
	Target Target
	Docs   bool
	Dir    string
}

func (j Job) String() string {
	if j.Docs {
		return string(j.Target) + " docs"
	}
	return string(j.Target)
}

// Result reports the outcome of one job.
type Result struct {
	Job   Job
	Files []string
	Err   error
}

// Run executes every job concurrently. Jobs only read reg; a failing job
// does not stop the others. Results come back in job order.
func Run(ctx context.Context, reg *metadata.Registry, jobs []Job, codePatterns, docPatterns []string, opts Options) []Result {
	results := make([]Result, len(jobs))
	group, ctx := errgroup.WithContext(ctx)

	docClasses := metadata.Filter(reg, docPatterns)
	for i, job := range jobs {
		group.Go(func() error {
			result := Result{Job: job}
			if err := ctx.Err(); err != nil {
				result.Err = err
			} else if job.Docs {
				result.Files, result.Err = EmitDocs(job.Target, docClasses, job.Dir)
			} else {
				result.Files, result.Err = Emit(job.Target, reg, job.Dir, codePatterns, opts)
			}
			results[i] = result
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// DefaultJobs lays the targets out below dist: <dist>/<target> for code and
// <dist>/<target>/docs for documentation.
func DefaultJobs(dist string, targets, docTargets []Target) []Job {
	jobs := make([]Job, 0, len(targets)+len(docTargets))
	for _, t := range targets {
		jobs = append(jobs, Job{Target: t, Dir: filepath.Join(dist, string(t))})
	}
	for _, t := range docTargets {
		jobs = append(jobs, Job{Target: t, Docs: true, Dir: filepath.Join(dist, string(t), "docs")})
	}
	return jobs
}
