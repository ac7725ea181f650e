package scan

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PollInterval - пауза между опросами источника, когда данных нет.
const PollInterval = 10 * time.Millisecond

// Reader читает строки из источника сканера и передаёт их обработчику по одной.
type Reader struct {
	src    io.Reader
	follow bool
	poll   time.Duration
	logger *zap.SugaredLogger
}

// NewReader создаёт читатель конечного источника: чтение завершается на io.EOF.
func NewReader(src io.Reader, logger *zap.SugaredLogger) *Reader {
	return &Reader{src: src, poll: PollInterval, logger: logger}
}

// NewPortReader создаёт читатель COM-порта: io.EOF означает, что данных пока нет.
func NewPortReader(port *Port, logger *zap.SugaredLogger) *Reader {
	return newFollowReader(port, logger)
}

func newFollowReader(src io.Reader, logger *zap.SugaredLogger) *Reader {
	return &Reader{src: src, follow: true, poll: PollInterval, logger: logger}
}

// Run читает источник до отмены контекста или конца потока.
// Каждая непустая строка декодируется как UTF-8 с пропуском битых байтов и передаётся в emit.
func (r *Reader) Run(ctx context.Context, emit func(token string)) error {
	br := bufio.NewReader(r.src)
	var pending []byte

	for {
		if ctx.Err() != nil {
			return nil
		}

		chunk, err := br.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err == nil {
			r.flush(pending, emit)
			pending = pending[:0]
			continue
		}

		if !errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Errorw("scanner read failed", "error", err)
			return err
		}

		if !r.follow {
			r.flush(pending, emit)
			return nil
		}

		time.Sleep(r.poll)
	}
}

func (r *Reader) flush(line []byte, emit func(string)) {
	token := strings.TrimSpace(strings.ToValidUTF8(string(line), ""))
	if token == "" {
		return
	}
	r.logger.Debugw("scanner token received", "length", len(token))
	emit(token)
}
