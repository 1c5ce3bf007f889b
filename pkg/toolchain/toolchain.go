// Package toolchain is the boundary to the external collaborators: the
// structured-document translator (cue) and the secret decryptor (sops).
// The engine only consumes their JSON output and exit status; both are
// invoked synchronously with no timeout, so callers needing deadlines
// should wrap the interfaces with a context-aware decorator.
package toolchain

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/perf"
	"github.com/WaywardWizard/cuenim/pkg/schema"
)

// Translator turns a structured document into JSON text.
type Translator interface {
	Translate(ctx context.Context, path string) ([]byte, error)
}

// Decryptor turns an encrypted secret document into JSON text.
type Decryptor interface {
	Decrypt(ctx context.Context, path string) ([]byte, error)
}

// ExecTranslator shells out to the cue binary (`cue export --out json`).
type ExecTranslator struct {
	// Bin overrides the binary name; defaults to "cue".
	Bin string
}

func (t *ExecTranslator) Translate(ctx context.Context, path string) ([]byte, error) {
	defer perf.Track(nil, "toolchain.Translate")()

	bin := t.Bin
	if bin == "" {
		bin = "cue"
	}
	return runTool(ctx, bin, "export", "--out", "json", path)
}

// ExecDecryptor shells out to the sops binary (`sops -d --output-type json`).
type ExecDecryptor struct {
	// Bin overrides the binary name; defaults to "sops".
	Bin string
}

func (d *ExecDecryptor) Decrypt(ctx context.Context, path string) ([]byte, error) {
	defer perf.Track(nil, "toolchain.Decrypt")()

	bin := d.Bin
	if bin == "" {
		bin = "sops"
	}
	return runTool(ctx, bin, "-d", "--output-type", "json", path)
}

// runTool invokes a collaborator binary and returns its stdout. A missing
// binary or a non-zero exit surfaces as ErrLoad carrying the diagnostic
// text the tool wrote to stderr.
func runTool(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		wrapped := errUtils.Wrapf(err, "%s %s", bin, strings.Join(args, " "))
		if diag := strings.TrimSpace(stderr.String()); diag != "" {
			wrapped = errUtils.WithDetail(wrapped, diag)
		}
		return nil, errUtils.Mark(wrapped, errUtils.ErrLoad)
	}
	return stdout.Bytes(), nil
}

// ToolUnavailable reports whether err stems from the collaborator binary
// not being present on PATH, which makes a structured load eligible for
// the plain-JSON fallback.
func ToolUnavailable(err error) bool {
	var execErr *exec.Error
	return errUtils.As(err, &execErr) && execErr.Err == exec.ErrNotFound
}

const (
	// JSONExtension marks plain-JSON sources.
	JSONExtension = ".json"
	// StructuredExtension marks structured documents.
	StructuredExtension = ".cue"
	// SecretMarker is the dot-separated token marking secret documents,
	// matched case-insensitively as the second-to-last token.
	SecretMarker = "sops"
)

// IsSecretPath reports whether path follows the secret naming contract
// (`<name>.<marker>.<ext>`).
func IsSecretPath(path string) bool {
	parts := strings.Split(path, ".")
	if len(parts) < 3 {
		return false
	}
	return strings.EqualFold(parts[len(parts)-2], SecretMarker)
}

// KindForPath classifies a file path by the extension contract. The bool
// result is false for paths outside the contract.
func KindForPath(path string) (schema.OriginKind, bool) {
	if IsSecretPath(path) {
		return schema.OriginSecret, true
	}
	switch {
	case strings.HasSuffix(path, StructuredExtension):
		return schema.OriginStructured, true
	case strings.HasSuffix(path, JSONExtension):
		return schema.OriginJSON, true
	default:
		return 0, false
	}
}
