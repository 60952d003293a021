package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbonduro/mystuff/internal/domain"
)

// CollectionFileName names a collection export: {AppName}_{epochSeconds}.pdf.
func CollectionFileName(appName string, at time.Time) string {
	return fmt.Sprintf("%s_%d.pdf", sanitize(appName), at.Unix())
}

// ItemListFileName names an item list export: ItemPriceList_{epochSeconds}.pdf.
func ItemListFileName(at time.Time) string {
	return fmt.Sprintf("ItemPriceList_%d.pdf", at.Unix())
}

// WriteFile writes data to dir/name through a temporary file and a rename,
// so the target either holds the complete document or does not exist.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", &domain.ExportError{Op: "write", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", &domain.ExportError{Op: "write", Err: err}
	}
	tmpName := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", &domain.ExportError{Op: "write", Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", &domain.ExportError{Op: "write", Err: err}
	}

	target := filepath.Join(dir, name)
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", &domain.ExportError{Op: "write", Err: err}
	}
	return target, nil
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "export"
	}
	return name
}
