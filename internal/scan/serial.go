package scan

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port - COM-порт сканера штрихкодов.
type Port struct {
	port serial.Port
}

// OpenPort открывает COM-порт сканера в режиме 8N1.
func OpenPort(name string, baudRate int, readTimeout time.Duration) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open scanner port %s: %w", name, err)
	}

	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Port{port: p}, nil
}

// Read читает данные порта. Истечение таймаута без данных возвращается как io.EOF.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Close закрывает порт.
func (p *Port) Close() error {
	return p.port.Close()
}

// Ports возвращает список доступных COM-портов.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
