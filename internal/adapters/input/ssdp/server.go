// Package ssdp answers Hue discovery searches so voice assistants find the
// bridge that exposes the cards as lights.
package ssdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

const multicastAddr = "239.255.255.250:1900"

type Server struct {
	ip     string
	port   int
	logger *slog.Logger
}

// NewServer announces http://ip:port/description.xml.
func NewServer(ip string, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ip: ip, port: port, logger: logger.With("component", "ssdp")}
}

// Start listens for M-SEARCH requests until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return err
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	s.logger.Info("listening for discovery", "addr", multicastAddr, "location", s.location())

	buf := make([]byte, 1024)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			continue
		}
		if isSearch(string(buf[:n])) {
			s.respond(src)
		}
	}
}

// isSearch reports whether msg is an M-SEARCH a Hue client would send.
// Echo devices search for basic:1 or the root device.
func isSearch(msg string) bool {
	if !strings.Contains(msg, "M-SEARCH") {
		return false
	}
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "urn:schemas-upnp-org:device:basic:1") ||
		strings.Contains(msg, "upnp:rootdevice") ||
		strings.Contains(msg, "ssdp:all")
}

func (s *Server) location() string {
	return fmt.Sprintf("http://%s:%d/description.xml", s.ip, s.port)
}

func (s *Server) response() string {
	return "HTTP/1.1 200 OK\r\n" +
		"CACHE-CONTROL: max-age=100\r\n" +
		"EXT:\r\n" +
		"LOCATION: " + s.location() + "\r\n" +
		"SERVER: FreeRTOS/6.0.5, UPnP/1.1, IpBridge/1.17.0\r\n" +
		"ST: urn:schemas-upnp-org:device:basic:1\r\n" +
		"USN: uuid:2f402f80-da50-11e1-9b23-001788102201::urn:schemas-upnp-org:device:basic:1\r\n\r\n"
}

func (s *Server) respond(dest *net.UDPAddr) {
	conn, err := net.DialUDP("udp4", nil, dest)
	if err != nil {
		s.logger.Warn("cannot answer search", "to", dest.String(), "error", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(s.response())); err != nil {
		s.logger.Warn("cannot answer search", "to", dest.String(), "error", err)
		return
	}
	s.logger.Debug("answered search", "to", dest.String())
}
