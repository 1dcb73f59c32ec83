package batch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wudi/redactkit/keytable"
)

// Archive entry names.
const (
	KeyTableName       = "applicant_key.xlsx"
	SealedKeyTableName = KeyTableName + ".sealed"
	ReportMarkdownName = "report.md"
	ReportHTMLName     = "report.html"
)

// ArchivePDFName is the archive entry of the document with identifier id.
func ArchivePDFName(id string) string { return "anonymized_" + id + ".pdf" }

// writeArchive writes the zip to a temporary file beside path and renames it
// into place once complete.
func writeArchive(path string, rep Report, passphrase string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("batch: create archive: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, o := range rep.Outcomes {
		if !o.OK() {
			continue
		}
		if err := addFile(zw, ArchivePDFName(o.Entry.ID), o.Output); err != nil {
			return err
		}
	}

	var key bytes.Buffer
	if err := rep.KeyTable().WriteXLSX(&key); err != nil {
		return err
	}
	keyName, keyData := KeyTableName, key.Bytes()
	if passphrase != "" {
		if keyData, err = keytable.Seal(keyData, passphrase); err != nil {
			return err
		}
		keyName = SealedKeyTableName
	}
	if err := addBytes(zw, keyName, keyData); err != nil {
		return err
	}

	if err := addBytes(zw, ReportMarkdownName, rep.Markdown()); err != nil {
		return err
	}
	html, err := rep.HTML()
	if err != nil {
		return err
	}
	if err := addBytes(zw, ReportHTMLName, html); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("batch: finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("batch: finish archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	return nil
}

func addBytes(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("batch: add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("batch: add %s: %w", name, err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("batch: add %s: %w", name, err)
	}
	defer f.Close()
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("batch: add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("batch: add %s: %w", name, err)
	}
	return nil
}
