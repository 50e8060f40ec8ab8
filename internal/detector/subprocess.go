package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/cardsight/internal/detection"
)

const serviceScript = "card_detector_service.py"

// SubprocessDetector implements Detector by driving an external inference
// service over its stdin and stdout.
//
// Each frame is written as a 4-byte big-endian length followed by a JPEG.
// The service answers with one JSON line holding parallel boxes, classes and
// confidences arrays.
type SubprocessDetector struct {
	config    Config
	script    string
	logger    *zap.Logger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewSubprocessDetector creates a new subprocess detector.
// The service process is started lazily on first detection.
func NewSubprocessDetector(config Config, logger *zap.Logger) (*SubprocessDetector, error) {
	script := config.Script
	if script == "" {
		script = findServiceScript()
	}
	if script == "" {
		return nil, fmt.Errorf("%s not found", serviceScript)
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("detector script: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SubprocessDetector{
		config: config,
		script: script,
		logger: logger,
	}, nil
}

// serviceResponse is the JSON line written by the service per frame.
type serviceResponse struct {
	Boxes       [][4]float64 `json:"boxes"`
	Classes     []int        `json:"classes"`
	Confidences []float64    `json:"confidences"`
	Error       string       `json:"error,omitempty"`
}

// Detect encodes the frame, sends it to the service and returns the
// detections it reports.
func (d *SubprocessDetector) Detect(frame *gocv.Mat) ([]detection.Detection, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	dets, err := decodeResponse([]byte(line))
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return dets, nil
}

// decodeResponse parses one service line into a validated tick batch.
func decodeResponse(line []byte) ([]detection.Detection, error) {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("detector service: %s", resp.Error)
	}

	return detection.FromClasses(resp.Boxes, resp.Classes, resp.Confidences)
}

// Close shuts down the service process.
func (d *SubprocessDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *SubprocessDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	python := d.config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	args := []string{d.script}
	if d.config.Weights != "" {
		args = append(args, "--weights", d.config.Weights)
	}
	d.cmd = exec.Command(python, args...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start detector service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	d.logger.Info("detector service started",
		zap.String("script", d.script),
		zap.Int("pid", d.cmd.Process.Pid))

	return nil
}

func (d *SubprocessDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	d.logger.Info("detector service stopped")
	return err
}

func (d *SubprocessDetector) resetIdleTimer() {
	timeout := d.config.IdleTimeout
	if timeout <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(timeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".cardsight", "scripts", serviceScript),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".cardsight/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
