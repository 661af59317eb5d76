package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db/models"
	"github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

// Service issues claim-submission links and their QR codes.
type Service struct {
	repo    Repository
	baseURL string
	qrSize  int
	now     func() time.Time
}

// NewService constructs a Service. baseURL is the public site root, e.g.
// "https://garantie.example.com".
func NewService(repo Repository, baseURL string, qrSize int) (*Service, error) {
	if repo == nil {
		return nil, errors.New("claim token repository required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("claims base url required")
	}
	if qrSize <= 0 {
		qrSize = defaultQRSize
	}
	return &Service{repo: repo, baseURL: baseURL, qrSize: qrSize, now: time.Now}, nil
}

// ClaimLink returns the warranty's claim URL and a PNG QR code encoding it.
// A token is issued on first use and reissued once expired.
func (s *Service) ClaimLink(ctx context.Context, warrantyID uuid.UUID) (string, []byte, error) {
	if warrantyID == uuid.Nil {
		return "", nil, errors.New("warranty id required")
	}
	token, err := s.repo.FindByWarranty(ctx, warrantyID)
	if err != nil {
		return "", nil, fmt.Errorf("load claim token: %w", err)
	}
	if token == nil || (token.ExpiresAt != nil && !token.ExpiresAt.After(s.now())) {
		token = &models.ClaimToken{
			ID:         uuid.New(),
			WarrantyID: warrantyID,
			Token:      newToken(),
			CreatedAt:  s.now().UTC(),
		}
		if err := s.repo.Save(ctx, token); err != nil {
			return "", nil, fmt.Errorf("save claim token: %w", err)
		}
	}

	url := s.baseURL + "/claim/" + token.Token
	png, err := qrcode.Encode(url, qrcode.Medium, s.qrSize)
	if err != nil {
		return "", nil, fmt.Errorf("render qr code: %w", err)
	}
	return url, png, nil
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
