// Package admin approves and rejects host registrations.
package admin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/evcharge-client/apiclient"
	"github.com/jrsteele09/evcharge-client/users"
)

const (
	pendingHostsPath = "/admin/pending-hosts"
	approveHostPath  = "/admin/approve-host/%d"
	rejectHostPath   = "/admin/reject-host/%d"
)

type Service struct {
	client *apiclient.Client
	logger zerolog.Logger
}

type ServiceOption func(*Service)

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(client *apiclient.Client, opts ...ServiceOption) *Service {
	s := &Service{client: client, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PendingHosts lists host registrations waiting for a decision.
func (s *Service) PendingHosts(ctx context.Context) ([]users.PendingHost, error) {
	var hosts []users.PendingHost
	if err := s.client.GetJSON(ctx, pendingHostsPath, &hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}

// ApproveHost promotes the pending account to HOST and returns the server message.
func (s *Service) ApproveHost(ctx context.Context, userID int64) (string, error) {
	resp, err := s.client.Put(ctx, fmt.Sprintf(approveHostPath, userID), nil)
	if err != nil {
		return "", err
	}
	s.logger.Info().Int64("userId", userID).Msg("host approved")
	return message(resp), nil
}

// RejectHost removes the pending account and returns the server message.
func (s *Service) RejectHost(ctx context.Context, userID int64) (string, error) {
	resp, err := s.client.Delete(ctx, fmt.Sprintf(rejectHostPath, userID))
	if err != nil {
		return "", err
	}
	s.logger.Info().Int64("userId", userID).Msg("host rejected")
	return message(resp), nil
}

func message(resp *apiclient.Response) string {
	var out struct {
		Message string `json:"message"`
	}
	if err := resp.Decode(&out); err != nil {
		return ""
	}
	return out.Message
}
