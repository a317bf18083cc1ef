// Package ingest consumes upload commands from the inbound SQS queue and
// feeds them to the job scheduler. A message is deleted only once its job
// completes, so queue redelivery is the retry path for failed jobs.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/scheduler"
	"reelsync/internal/services"
)

// CommandUploadMedia is the only command the pipeline acts on.
const CommandUploadMedia = "upload-media"

// Command is the validated inbound message payload. Unknown commands decode
// into the same shape and are rejected by name, never silently defaulted.
type Command struct {
	Command    string `json:"command"`
	MediaID    string `json:"mediaId"`
	MediaType  string `json:"mediaType"`
	SourcePath string `json:"sourcePath,omitempty"`
}

type queueAPI interface {
	ReceiveMessageWithContext(ctx aws.Context, input *sqs.ReceiveMessageInput, opts ...request.Option) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageWithContext(ctx aws.Context, input *sqs.DeleteMessageInput, opts ...request.Option) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls the queue and submits jobs to the scheduler.
type Consumer struct {
	queue       queueAPI
	queueURL    string
	waitSeconds int64
	inboxDir    string
	sched       *scheduler.Scheduler
	logger      *slog.Logger
}

// New builds a consumer against the configured queue.
func New(cfg *config.Config, sched *scheduler.Scheduler, logger *slog.Logger) (*Consumer, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.ObjectStore.Region)}
	if cfg.ObjectStore.AccessKey != "" && cfg.ObjectStore.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey, "")
	}
	if cfg.ObjectStore.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.ObjectStore.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "new session", "", err)
	}

	return &Consumer{
		queue:       sqs.New(sess),
		queueURL:    cfg.IngestQueue.QueueURL,
		waitSeconds: int64(cfg.IngestQueue.WaitSeconds),
		inboxDir:    filepath.Join(cfg.Paths.StagingDir, "inbox"),
		sched:       sched,
		logger:      logging.NewComponentLogger(logger, "ingest"),
	}, nil
}

// Run polls until the context is canceled. Receive errors back off briefly
// instead of tightening into a spin.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := c.queue.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: aws.Int64(10),
			WaitTimeSeconds:     aws.Int64(c.waitSeconds),
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("queue receive failed", logging.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, message := range out.Messages {
			c.handle(ctx, message)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, message *sqs.Message) {
	receipt := aws.StringValue(message.ReceiptHandle)

	var cmd Command
	if err := json.Unmarshal([]byte(aws.StringValue(message.Body)), &cmd); err != nil {
		c.logger.Warn("discarding malformed queue message", logging.Error(err))
		c.delete(receipt)
		return
	}
	if cmd.Command != CommandUploadMedia {
		c.logger.Warn("discarding unknown command",
			logging.String("command", cmd.Command))
		c.delete(receipt)
		return
	}
	if strings.TrimSpace(cmd.MediaID) == "" {
		c.logger.Warn("discarding upload command without media id")
		c.delete(receipt)
		return
	}

	job := scheduler.Job{
		ID:         cmd.MediaID,
		SourcePath: cmd.SourcePath,
		MediaKind:  cmd.MediaType,
	}
	if job.SourcePath == "" {
		job.SourcePath = filepath.Join(c.inboxDir, cmd.MediaID)
	}
	if job.MediaKind == "" {
		job.MediaKind = "movie"
	}
	job.OnComplete = func(err error) {
		if err != nil {
			c.logger.Warn("job failed, leaving message for redelivery",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
			return
		}
		c.delete(receipt)
	}

	switch c.sched.Submit(ctx, job) {
	case scheduler.SubmitDuplicate:
		// Already queued or running; a second copy adds nothing.
		c.delete(receipt)
	case scheduler.SubmitRejected:
		// Shutting down; leave the message so the next run picks it up.
		c.logger.Info("scheduler closed, leaving message for redelivery",
			logging.String(logging.FieldJobID, job.ID))
	}
}

// delete acknowledges a message. Runs on its own short deadline so a
// canceled poll context cannot strand an acknowledged job.
func (c *Consumer) delete(receipt string) {
	if receipt == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := c.queue.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		c.logger.Warn("queue message delete failed", logging.Error(err))
	}
}
