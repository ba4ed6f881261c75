package services

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wenlng/go-captcha/v2/rotate"
)

// CaptchaService guards the admin login with a rotate captcha. Generate
// returns a challenge ID plus two base64 images; Verify checks the angle
// the operator applied, within the configured tolerance. Challenges live
// in memory with a TTL and are consumed on first verification attempt.
type CaptchaService interface {
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

type rotateCaptchaService struct {
	rotator rotate.Captcha
	padding int // tolerance in degrees

	mu         sync.RWMutex
	challenges map[string]rotateChallengeEntry
	ttl        time.Duration
}

type rotateChallengeEntry struct {
	targetAngle int
	expiresAt   time.Time
}

// NewCaptchaServiceRotate constructs a CaptchaService using rotate mode.
func NewCaptchaServiceRotate(ttl time.Duration, padding, imgSizePx int) (CaptchaService, error) {
	if imgSizePx <= 0 {
		imgSizePx = 220
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	builder := rotate.NewBuilder(
		rotate.WithImageSquareSize(imgSizePx),
	)
	builder.SetResources(
		rotate.WithImages(captchaBackgrounds(3, imgSizePx)),
	)

	svc := &rotateCaptchaService{
		rotator:    builder.Make(),
		padding:    padding,
		challenges: make(map[string]rotateChallengeEntry),
		ttl:        ttl,
	}
	go svc.cleanupLoop()
	return svc, nil
}

func (s *rotateCaptchaService) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, err
	}

	block := captData.GetData()
	if block == nil {
		return nil, err
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	challengeID := uuid.New().String()

	s.mu.Lock()
	s.challenges[challengeID] = rotateChallengeEntry{
		targetAngle: block.Angle,
		expiresAt:   time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return &RotateChallenge{
		ID:                challengeID,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
	}, nil
}

func (s *rotateCaptchaService) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	s.mu.Lock()
	entry, ok := s.challenges[challengeID]
	// Single-use: drop the challenge no matter the outcome
	delete(s.challenges, challengeID)
	s.mu.Unlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return false
	}

	return rotate.Validate(int(math.Round(userAngle)), entry.targetAngle, s.padding)
}

func (s *rotateCaptchaService) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for id, entry := range s.challenges {
			if now.After(entry.expiresAt) {
				delete(s.challenges, id)
			}
		}
		s.mu.Unlock()
	}
}

// captchaBackgrounds generates simple gradient backgrounds so no image
// assets need shipping with the binary.
func captchaBackgrounds(n, size int) []image.Image {
	if n <= 0 {
		n = 1
	}
	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		imgs = append(imgs, gradientImage(size, size))
	}
	return imgs
}

func gradientImage(w, h int) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := float64(x+y) / float64(w+h)
			base := uint8(220 - int(160*t))
			noise := uint8(rand.Intn(24))
			rgba.Set(x, y, color.RGBA{R: base, G: base/2 + noise, B: 255 - base/3, A: 255})
		}
	}
	// overlay a couple of translucent bands
	band := image.Rect(0, h/4, w, h/4+h/12)
	draw.Draw(rgba, band, &image.Uniform{C: color.RGBA{R: 255, G: 255, B: 255, A: 28}}, image.Point{}, draw.Over)
	band = image.Rect(0, 2*h/3, w, 2*h/3+h/14)
	draw.Draw(rgba, band, &image.Uniform{C: color.RGBA{A: 22}}, image.Point{}, draw.Over)
	return rgba
}
