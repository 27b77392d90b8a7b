package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/hitoshi/showroom/internal/model"
)

// multipartBody はmultipart/form-dataのリクエストボディを組み立てる。
type multipartBody struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newMultipartBody() *multipartBody {
	b := &multipartBody{}
	b.w = multipart.NewWriter(&b.buf)
	return b
}

func (b *multipartBody) field(name, value string) {
	if b.err != nil {
		return
	}
	b.err = b.w.WriteField(name, value)
}

func (b *multipartBody) file(field string, f model.File) {
	if b.err != nil {
		return
	}
	part, err := b.w.CreateFormFile(field, f.Name)
	if err != nil {
		b.err = err
		return
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		b.err = fmt.Errorf("ファイル %q の書き込みに失敗しました: %w", f.Name, err)
	}
}

// finish はボディとContent-Typeを返す。
func (b *multipartBody) finish() (io.Reader, string, error) {
	if b.err != nil {
		return nil, "", b.err
	}
	if err := b.w.Close(); err != nil {
		return nil, "", err
	}
	return &b.buf, b.w.FormDataContentType(), nil
}
