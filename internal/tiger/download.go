package tiger

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/resilience"
)

// shapefileParts are the archive members kept on extraction.
var shapefileParts = map[string]bool{
	".shp": true,
	".shx": true,
	".dbf": true,
	".prj": true,
	".cpg": true,
}

// Download fetches a TIGER/Line ZIP into destDir, extracts its shapefile
// members and returns the path of the .shp file. An archive already present
// in destDir is reused.
func Download(ctx context.Context, rawURL, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "tiger"),
		zap.String("url", rawURL),
	)

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "tiger: parse url %s", rawURL)
	}
	zipName := path.Base(u.Path)
	if !strings.HasSuffix(strings.ToLower(zipName), ".zip") {
		return "", eris.Errorf("tiger: %s is not a zip archive", rawURL)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create dest dir")
	}
	zipPath := filepath.Join(destDir, zipName)

	if info, statErr := os.Stat(zipPath); statErr == nil && info.Size() > 0 {
		log.Debug("archive already present", zap.String("path", zipPath))
	} else {
		log.Info("downloading TIGER/Line archive")
		b := resilience.DefaultBackoff()
		b.OnRetry = resilience.LogRetry("tiger")
		err := resilience.Do(ctx, b, func(ctx context.Context) error {
			return fetch(ctx, rawURL, zipPath)
		})
		if err != nil {
			_ = os.Remove(zipPath)
			return "", eris.Wrap(err, "tiger: download")
		}
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, filepath.Ext(zipName)))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create extract dir")
	}
	if err := extractShapefile(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "tiger: extract")
	}

	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "tiger: find .shp file")
	}
	log.Info("shapefile ready", zap.String("path", shpPath))
	return shpPath, nil
}

func fetch(ctx context.Context, rawURL, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("unexpected status %d", resp.StatusCode)
		if resilience.IsTransientStatus(resp.StatusCode) {
			return resilience.Transient(err, resp.StatusCode)
		}
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "write file")
	}
	return eris.Wrap(f.Close(), "close file")
}

// extractShapefile writes the shapefile members of a ZIP archive into
// destDir, flattening any directory structure.
func extractShapefile(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		if !shapefileParts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		if err := extractFile(f, filepath.Join(destDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "open zip entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "create %s", dest)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "extract %s", f.Name)
	}
	return eris.Wrapf(out.Close(), "close %s", dest)
}

func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
