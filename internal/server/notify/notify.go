// Package notify hands freshly issued password-reset tokens to whatever
// delivers them to the account owner.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/logging"
	"github.com/hibiken/asynq"
)

const (
	// TypePasswordReset is the asynq task type for reset mails.
	TypePasswordReset = "mail:password_reset"
	// QueueMail is the asynq queue mail tasks are placed on.
	QueueMail = "mail"

	defaultMaxRetry = 3
)

// PasswordReset is what the account owner needs to complete a reset.
type PasswordReset struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Notifier interface {
	NotifyPasswordReset(ctx context.Context, msg PasswordReset) error
}

// LogNotifier only records that a token was issued. The token itself is
// never logged.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("module", "notify")}
}

func (n *LogNotifier) NotifyPasswordReset(ctx context.Context, msg PasswordReset) error {
	n.log.Info(ctx, "password reset issued",
		"email", common.MaskEmail(msg.Email),
		"expires_at", msg.ExpiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}

// Enqueuer is the part of *asynq.Client used by QueueNotifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier enqueues reset mails for the worker to deliver.
type QueueNotifier struct {
	client   Enqueuer
	maxRetry int
	log      logging.Logger
}

func NewQueueNotifier(client Enqueuer, log logging.Logger) *QueueNotifier {
	return &QueueNotifier{client: client, maxRetry: defaultMaxRetry, log: log.With("module", "notify")}
}

func (n *QueueNotifier) NotifyPasswordReset(ctx context.Context, msg PasswordReset) error {
	task, err := NewPasswordResetTask(msg)
	if err != nil {
		return err
	}

	// the token expires anyway, so a mail delivered after that is useless
	opts := []asynq.Option{asynq.MaxRetry(n.maxRetry)}
	if !msg.ExpiresAt.IsZero() {
		opts = append(opts, asynq.Deadline(msg.ExpiresAt))
	}

	info, err := n.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue reset mail: %w", err)
	}
	n.log.Debug(ctx, "reset mail enqueued", "task_id", info.ID, "email", common.MaskEmail(msg.Email))
	return nil
}

// NewPasswordResetTask builds the task carrying msg.
func NewPasswordResetTask(msg PasswordReset) (*asynq.Task, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePasswordReset, body, asynq.Queue(QueueMail)), nil
}

// ParsePasswordResetTask decodes the payload of a reset mail task.
func ParsePasswordResetTask(task *asynq.Task) (PasswordReset, error) {
	var msg PasswordReset
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return PasswordReset{}, err
	}
	if msg.Email == "" || msg.Token == "" {
		return PasswordReset{}, fmt.Errorf("reset mail payload missing email or token")
	}
	return msg, nil
}
