package attach

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/matheus3301/wppchat/internal/store"
)

// Inspect stats a local file and works out its MIME type, first from the
// extension and then by sniffing the first bytes.
func Inspect(path string) (store.LocalBlob, error) {
	info, err := os.Stat(path)
	if err != nil {
		return store.LocalBlob{}, fmt.Errorf("inspect attachment: %w", err)
	}
	if info.IsDir() {
		return store.LocalBlob{}, &ValidationError{Reason: fmt.Sprintf("%s is a directory.", info.Name())}
	}

	blob := store.LocalBlob{
		Path: path,
		Name: info.Name(),
		Size: info.Size(),
	}
	blob.MIMEType = baseMIME(mime.TypeByExtension(extension(blob.Name)))
	if blob.MIMEType == "" {
		blob.MIMEType, err = sniff(path)
		if err != nil {
			return store.LocalBlob{}, fmt.Errorf("inspect attachment: %w", err)
		}
	}
	return blob, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return baseMIME(http.DetectContentType(head[:n])), nil
}

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

func baseMIME(t string) string {
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(t))
}
