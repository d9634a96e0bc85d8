package present

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/log"
	"go.uber.org/zap"
)

// Saver 把文本保存为指定名字的文件
type Saver interface {
	Save(text string, filename string) error
}

// HTTPSaver 以附件形式下载
type HTTPSaver struct {
	W http.ResponseWriter
}

func (s *HTTPSaver) Save(text string, filename string) error {
	h := s.W.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Length", strconv.Itoa(len(text)))
	s.W.WriteHeader(http.StatusOK)
	if _, err := s.W.Write([]byte(text)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// FileSaver 写入 Dir 目录, 文件名只取最后一段
type FileSaver struct {
	Dir string
}

func (s *FileSaver) Save(text string, filename string) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	log.Info("Header saved", zap.String("path", path), zap.Int("bytes", len(text)))
	return nil
}

// Save 只有可以保存时才调用 saver
func Save(v *View, saver Saver) error {
	if !v.CanSave {
		return errors.New("nothing to save")
	}
	return saver.Save(v.Source, v.Filename)
}
