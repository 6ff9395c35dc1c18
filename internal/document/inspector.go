package document

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Inspector re-opens a rendered artifact and confirms it actually carries the
// voucher it claims to. A copy that cannot be parsed or does not mention its
// folio is never handed to delivery.
type Inspector struct {
	logger *zap.Logger
}

// NewInspector creates an artifact inspector
func NewInspector(logger *zap.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// ConfirmFolio parses the artifact PDF and checks the folio appears in its
// extracted text.
func (i *Inspector) ConfirmFolio(artifact *Artifact, folio string) error {
	doc, err := fitz.NewFromMemory(artifact.Content)
	if err != nil {
		return fmt.Errorf("inspect %s: unreadable artifact: %w", folio, err)
	}
	defer doc.Close()

	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			i.logger.Warn("Failed to extract text from artifact page",
				zap.String("folio", folio),
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		if strings.Contains(text, folio) {
			return nil
		}
	}

	return fmt.Errorf("inspect %s: folio not found in rendered document", folio)
}
