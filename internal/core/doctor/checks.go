package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/loupe/internal/core/config"
	coresearch "github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/search"
)

// probeTimeout bounds the source probe.
const probeTimeout = 10 * time.Second

// ConfigCheck runs the deep configuration validation.
type ConfigCheck struct {
	cfg  *config.Config
	path string
}

func NewConfigCheck(cfg *config.Config, path string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, path: path}
}

func (c *ConfigCheck) Name() string { return "Configuration" }

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	label := c.path
	if _, err := os.Stat(c.path); c.path == "" || errors.Is(err, os.ErrNotExist) {
		label = "defaults"
	}

	err := c.cfg.ValidateDeep(c.path)
	if err == nil {
		result.Items = append(result.Items, pass(label, "valid"))
		return result
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		result.Items = append(result.Items, fail(label, err.Error()))
		return result
	}
	for _, fe := range fieldErrs {
		result.Items = append(result.Items, fail(fe.Field, fe.Err.Error()))
	}
	return result
}

// StorageCheck verifies the data directory is writable and the history
// database opens.
type StorageCheck struct {
	dataDir string
	open    func(ctx context.Context) error
}

// NewStorageCheck creates a storage check. open opens and closes the history
// database.
func NewStorageCheck(dataDir string, open func(ctx context.Context) error) *StorageCheck {
	return &StorageCheck{dataDir: dataDir, open: open}
}

func (c *StorageCheck) Name() string { return "Storage" }

func (c *StorageCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if err := checkWritable(c.dataDir); err != nil {
		result.Items = append(result.Items, fail("data directory", err.Error()))
		return result
	}
	result.Items = append(result.Items, pass("data directory", c.dataDir))

	if err := c.open(ctx); err != nil {
		result.Items = append(result.Items, fail("history database", err.Error()))
	} else {
		result.Items = append(result.Items, pass("history database", "ok"))
	}
	return result
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create: %w", err)
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// FileLister lists the files a file source reads.
type FileLister interface {
	Files() ([]string, error)
}

// SourceCheck runs a one row search against the configured source.
type SourceCheck struct {
	kind   string
	source search.Source
	params coresearch.Params
	now    func() time.Time
}

// NewSourceCheck creates a source check probing with params, resolved
// against now.
func NewSourceCheck(kind string, source search.Source, params coresearch.Params, now func() time.Time) *SourceCheck {
	return &SourceCheck{kind: kind, source: source, params: params, now: now}
}

func (c *SourceCheck) Name() string { return "Source" }

func (c *SourceCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if lister, ok := c.source.(FileLister); ok {
		files, err := lister.Files()
		switch {
		case err != nil:
			result.Items = append(result.Items, fail("files", err.Error()))
			return result
		case len(files) == 0:
			result.Items = append(result.Items, warn("files", "no files match source.file.paths"))
		default:
			result.Items = append(result.Items, pass("files", fmt.Sprintf("%d matched", len(files))))
		}
	}

	p := c.params.FirstPage()
	p.PageSize = 1
	p, err := coresearch.ResolveTimeRange(p, c.now())
	if err != nil {
		result.Items = append(result.Items, fail(c.kind, err.Error()))
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	started := c.now()
	res, err := c.source.Search(ctx, p)
	if err != nil {
		result.Items = append(result.Items, fail(c.kind, err.Error()))
		return result
	}

	detail := fmt.Sprintf("%d rows in %s, answered in %s",
		res.TotalCount, coresearch.TimeRangeLabel(p.TimeRange), c.now().Sub(started).Round(time.Millisecond))
	if p.TimeRange == "" {
		detail = fmt.Sprintf("%d rows, answered in %s", res.TotalCount, c.now().Sub(started).Round(time.Millisecond))
	}
	result.Items = append(result.Items, pass(c.kind, detail))
	return result
}

// ErrorCheck reports a check that could not be set up.
type ErrorCheck struct {
	name  string
	label string
	err   error
}

func NewErrorCheck(name, label string, err error) *ErrorCheck {
	return &ErrorCheck{name: name, label: label, err: err}
}

func (c *ErrorCheck) Name() string { return c.name }

func (c *ErrorCheck) Run(_ context.Context) Result {
	return Result{Name: c.name, Items: []CheckItem{fail(c.label, c.err.Error())}}
}
