// Package sink 提供行输出的实现（Emitter）。
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 为文件输出配置；Path 为空时输出到日志。
type Config struct {
	Path       string `toml:"path"`
	MaxBytes   int64  `toml:"max_bytes"`   // 0 表示不轮转
	MaxBackups int    `toml:"max_backups"` // 保留的轮转文件数
	Compress   bool   `toml:"compress"`    // 轮转文件压缩为 .zst
}

func DefaultConfig() Config {
	return Config{
		MaxBytes:   64 << 20, // 64 MiB
		MaxBackups: 4,
		Compress:   true,
	}
}

func (c Config) Validate() error {
	if c.MaxBytes < 0 {
		return fmt.Errorf("sink: max_bytes must be >= 0, got %d", c.MaxBytes)
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("sink: max_backups must be >= 0, got %d", c.MaxBackups)
	}
	return nil
}

// Log 把每一行作为一条 info 日志输出。
type Log struct {
	entry *logrus.Entry
}

func NewLog(entry *logrus.Entry) *Log { return &Log{entry: entry} }

func (l *Log) Emit(line string) {
	l.entry.WithField("line", line).Info("received")
}

// File 追加写入文件，超过 MaxBytes 时轮转。
// 写失败只记日志，不向调用方传播。
type File struct {
	cfg  Config
	log  *logrus.Entry
	mu   sync.Mutex
	f    *os.File
	size int64
}

// Open 以追加模式打开（或创建）输出文件。
func Open(cfg Config, log *logrus.Entry) (*File, error) {
	if cfg.Path == "" {
		return nil, errors.New("sink: empty path")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &File{cfg: cfg, log: log}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *File) open() error {
	f, err := os.OpenFile(s.cfg.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o640)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	s.f, s.size = f, st.Size()
	return nil
}

func (s *File) Emit(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	n, err := io.WriteString(s.f, line)
	s.size += int64(n)
	if err != nil {
		s.log.WithError(err).WithField("path", s.cfg.Path).Warn("sink: write failed")
		return
	}
	if s.cfg.MaxBytes > 0 && s.size >= s.cfg.MaxBytes {
		if err := s.rotate(); err != nil {
			s.log.WithError(err).WithField("path", s.cfg.Path).Warn("sink: rotate failed")
		}
	}
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// backupName 返回第 i 个轮转文件名（path.1, path.2.zst, ...）。
func (s *File) backupName(i int) string {
	name := s.cfg.Path + "." + strconv.Itoa(i)
	if s.cfg.Compress {
		name += ".zst"
	}
	return name
}

// rotate 调用时持有 mu。
func (s *File) rotate() error {
	if err := s.f.Close(); err != nil {
		return err
	}
	s.f = nil
	if s.cfg.MaxBackups == 0 {
		if err := os.Remove(s.cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return s.open()
	}
	// 依次后移，最老的被覆盖
	for i := s.cfg.MaxBackups - 1; i >= 1; i-- {
		err := os.Rename(s.backupName(i), s.backupName(i+1))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	var err error
	if s.cfg.Compress {
		err = compressFile(s.cfg.Path, s.backupName(1))
	} else {
		err = os.Rename(s.cfg.Path, s.backupName(1))
	}
	if err != nil {
		// 尽量恢复写入
		if oerr := s.open(); oerr != nil {
			return errors.Join(err, oerr)
		}
		return err
	}
	return s.open()
}

// compressFile 把 src 压缩写入 dst 后删除 src。
func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	enc := getEncoder()
	enc.Reset(out)
	_, err = io.Copy(enc, in)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	putEncoder(enc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
