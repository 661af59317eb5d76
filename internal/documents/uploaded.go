package documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// uploadedTemplates validates uploaded contract PDFs and joins them with the
// rendered appendix.
type uploadedTemplates interface {
	Validate(pdf []byte) error
	Merge(parts ...[]byte) ([]byte, int, error)
}

var disableConfigDir sync.Once

type pdfcpuTemplates struct{}

func pdfcpuConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func (pdfcpuTemplates) Validate(pdf []byte) error {
	if len(pdf) == 0 {
		return errors.New("empty pdf")
	}
	if !bytes.HasPrefix(bytes.TrimLeft(pdf, "\x00\t\n\r "), []byte("%PDF-")) {
		return errors.New("missing pdf header")
	}
	return api.Validate(bytes.NewReader(pdf), pdfcpuConfig())
}

func (pdfcpuTemplates) Merge(parts ...[]byte) ([]byte, int, error) {
	if len(parts) == 0 {
		return nil, 0, errors.New("nothing to merge")
	}
	readers := make([]io.ReadSeeker, 0, len(parts))
	for _, p := range parts {
		readers = append(readers, bytes.NewReader(p))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, pdfcpuConfig()); err != nil {
		return nil, 0, fmt.Errorf("merge: %w", err)
	}
	pages, err := api.PageCount(bytes.NewReader(out.Bytes()), pdfcpuConfig())
	if err != nil {
		return nil, 0, fmt.Errorf("count pages: %w", err)
	}
	return out.Bytes(), pages, nil
}
