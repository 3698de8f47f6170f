package utils

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"intrinseco/pkg/core/logging"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DumpWriter writes debug artifacts (normalized text, chunks, prompts) to a
// directory. A DumpWriter with an empty directory, or a nil one, does
// nothing. Write failures are logged and never returned.
type DumpWriter struct {
	dir    string
	prefix string
}

type dumpPrefixKey struct{}

// WithDumpPrefix returns ctx carrying a prefix for every dump written
// through DumpWriter.For(ctx). Concurrent jobs use it to keep their files apart.
func WithDumpPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, dumpPrefixKey{}, prefix)
}

// NewDumpWriter returns a writer rooted at dir.
func NewDumpWriter(dir string) *DumpWriter {
	return &DumpWriter{dir: dir}
}

// Enabled reports whether dumps are written.
func (d *DumpWriter) Enabled() bool {
	return d != nil && d.dir != ""
}

// For returns a writer that prefixes names with the prefix carried by ctx.
func (d *DumpWriter) For(ctx context.Context) *DumpWriter {
	if d == nil {
		return nil
	}
	prefix, _ := ctx.Value(dumpPrefixKey{}).(string)
	if prefix == "" {
		return d
	}
	return &DumpWriter{dir: d.dir, prefix: d.prefix + prefix + "_"}
}

// Write stores content as <dir>/<name>.txt and returns whether it succeeded.
func (d *DumpWriter) Write(name, content string) bool {
	if !d.Enabled() {
		return false
	}
	log := logging.Named("dump")
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		log.Warn("failed to create dump dir", zap.String("dir", d.dir), zap.Error(err))
		return false
	}
	path := filepath.Join(d.dir, unsafeName.ReplaceAllString(d.prefix+name, "_")+".txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Warn("failed to write dump", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}
