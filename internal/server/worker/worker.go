// Package worker consumes queued mail tasks and delivers them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/logging"
	"github.com/dmitrijs2005/eduportal/internal/server/notify"
	"github.com/hibiken/asynq"
)

// Worker runs an asynq server for the mail queue.
type Worker struct {
	server       *asynq.Server
	mailer       Mailer
	resetURLBase string
	logger       logging.Logger
}

func NewWorker(redisOpt asynq.RedisConnOpt, mailer Mailer, resetURLBase string, l logging.Logger) *Worker {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				notify.QueueMail: 1,
			},
		},
	)
	return &Worker{
		server:       server,
		mailer:       mailer,
		resetURLBase: resetURLBase,
		logger:       l.With("module", "mail_worker"),
	}
}

// Mux routes task types to their handlers.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TypePasswordReset, w.handlePasswordReset)
	return mux
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.Mux()); err != nil {
		return err
	}
	w.logger.Info(ctx, "Mail worker started")

	<-ctx.Done()
	w.logger.Info(ctx, "Stopping mail worker...")
	w.server.Shutdown()
	return nil
}

func (w *Worker) handlePasswordReset(ctx context.Context, task *asynq.Task) error {
	msg, err := notify.ParsePasswordResetTask(task)
	if err != nil {
		// a malformed payload will never succeed
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if !msg.ExpiresAt.IsZero() && time.Now().After(msg.ExpiresAt) {
		w.logger.Info(ctx, "reset mail dropped, token expired", "email", common.MaskEmail(msg.Email))
		return nil
	}

	link, err := ResetLink(w.resetURLBase, msg.Email, msg.Token)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	err = w.mailer.Send(ctx, Mail{
		To:      msg.Email,
		Subject: "Reset your password",
		Body: "We received a request to reset your password.\r\n\r\n" +
			"Open the link below to choose a new one:\r\n" + link + "\r\n\r\n" +
			"The link expires at " + msg.ExpiresAt.UTC().Format(time.RFC1123) + ".\r\n" +
			"If you did not ask for this, ignore this message.\r\n",
	})
	if err != nil {
		w.logger.Warn(ctx, "reset mail delivery failed", "email", common.MaskEmail(msg.Email), "error", err)
		return err
	}

	w.logger.Info(ctx, "reset mail sent", "email", common.MaskEmail(msg.Email))
	return nil
}

// ResetLink appends email and token as query parameters to base.
func ResetLink(base, email, token string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", errors.New("reset url base is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("reset url base: %w", err)
	}
	q := u.Query()
	q.Set("email", email)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
