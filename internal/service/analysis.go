package service

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/repository"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

// SQSAPI is the subset of the SQS client the analysis queue uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AnalysisService enqueues systems for the offline suggestion analysis
// pipeline. A system already queued is not enqueued again until the
// pipeline clears its flag.
type AnalysisService struct {
	client   SQSAPI
	queueURL string
	systems  *repository.SystemRepository
	logger   *zap.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(client SQSAPI, queueURL string, systems *repository.SystemRepository, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{client: client, queueURL: queueURL, systems: systems, logger: logger}
}

// EnqueueSystem queues a system for analysis unless it already is.
func (s *AnalysisService) EnqueueSystem(ctx context.Context, systemID string) error {
	system, err := s.systems.GetSystem(ctx, systemID)
	if err != nil {
		return err
	}
	if system.InAnalysisQueue {
		return nil
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(systemID),
	})
	if err != nil {
		return appErrors.NewInternal("failed to enqueue system for analysis", err)
	}
	if err := s.systems.SetInAnalysisQueue(ctx, systemID, true); err != nil {
		return err
	}
	s.logger.Debug("enqueued system for analysis", zap.String("systemId", systemID))
	return nil
}
