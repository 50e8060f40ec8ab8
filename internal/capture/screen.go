package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
	"gocv.io/x/gocv"
)

// Region is a rectangle of the screen in pixels. A zero Width or Height
// captures the whole primary screen.
type Region struct {
	X, Y, Width, Height int
}

// screenCamera grabs frames from a screen region, for tables played in a
// desktop client.
type screenCamera struct {
	region  Region
	mu      sync.Mutex
	running bool
	fps     int
}

// NewScreenCamera creates a Camera that captures region.
func NewScreenCamera(region Region) Camera {
	return &screenCamera{
		region: region,
		fps:    DefaultFPS,
	}
}

func (s *screenCamera) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.region.Width <= 0 || s.region.Height <= 0 {
		w, h := robotgo.GetScreenSize()
		if w <= 0 || h <= 0 {
			return errors.New("no screen available")
		}
		s.region = Region{Width: w, Height: h}
	}

	s.running = true
	return nil
}

func (s *screenCamera) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// ReadFrame captures the region. The caller is responsible for closing the
// returned Mat.
func (s *screenCamera) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrCameraNotOpen
	}

	r := s.region
	img, err := robotgo.CaptureImg(r.X, r.Y, r.Width, r.Height)
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert screen capture: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

func (s *screenCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps = fps
}

func (s *screenCamera) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *screenCamera) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
