// Package sendfriend ограничивает частоту отправок "рассказать другу".
package sendfriend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// DefaultWindow — окно подсчёта отправок.
const DefaultWindow = time.Hour

// FormState описывает форму отправки для товара.
type FormState struct {
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	MaxSends      int    `json:"max_sends"`
	LimitExceeded bool   `json:"limit_exceeded"`
	Notice        string `json:"notice,omitempty"`
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service проверяет лимит и ведёт журнал отправок.
type Service struct {
	catalog  domain.ProductCatalog
	sendLog  domain.SendLogRepository
	maxSends int
	window   time.Duration
	now      func() time.Time
	logger   *log.Entry
}

// NewService создаёт сервис. maxSendsPerHour == 0 отключает лимит.
func NewService(catalog domain.ProductCatalog, sendLog domain.SendLogRepository, maxSendsPerHour int, options ...Option) *Service {
	if maxSendsPerHour < 0 {
		maxSendsPerHour = 0
	}
	s := &Service{
		catalog:  catalog,
		sendLog:  sendLog,
		maxSends: maxSendsPerHour,
		window:   DefaultWindow,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log.WithField("component", "sendfriend"),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// MaxSendsPerHour возвращает настроенный лимит.
func (s *Service) MaxSendsPerHour() int {
	return s.maxSends
}

// Prepare возвращает состояние формы для товара.
// Неизвестный или скрытый товар — domain.ErrProductNotFound.
func (s *Service) Prepare(ctx context.Context, productID int64, sender string) (FormState, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return FormState{}, err
	}

	state := FormState{
		ProductID:   product.ID,
		ProductName: product.Name,
		MaxSends:    s.maxSends,
	}

	exceeded, err := s.limitExceeded(ctx, sender)
	if err != nil {
		return FormState{}, err
	}
	if exceeded {
		state.LimitExceeded = true
		state.Notice = s.notice()
	}
	return state, nil
}

// Record регистрирует отправку. При исчерпанном лимите возвращает
// ошибку, совместимую с domain.ErrSendLimitExceeded и *domain.UserError.
func (s *Service) Record(ctx context.Context, productID int64, sender string) error {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return err
	}

	exceeded, err := s.limitExceeded(ctx, sender)
	if err != nil {
		return err
	}
	if exceeded {
		s.logger.WithFields(log.Fields{
			"product_id": productID,
			"sender":     sender,
		}).Info("send to friend limit exceeded")
		return &limitError{notice: s.notice()}
	}

	return s.sendLog.Record(ctx, domain.SendRecord{
		ProductID: productID,
		Sender:    strings.TrimSpace(sender),
		SentAt:    s.now(),
	})
}

func (s *Service) limitExceeded(ctx context.Context, sender string) (bool, error) {
	if s.maxSends == 0 {
		return false, nil
	}
	count, err := s.sendLog.CountSince(ctx, strings.TrimSpace(sender), s.now().Add(-s.window))
	if err != nil {
		return false, fmt.Errorf("count sends: %w", err)
	}
	return count >= s.maxSends, nil
}

func (s *Service) notice() string {
	return fmt.Sprintf("You can't send messages more than %d times an hour.", s.maxSends)
}

type limitError struct {
	notice string
}

func (e *limitError) Error() string { return e.notice }

func (e *limitError) Is(target error) bool { return target == domain.ErrSendLimitExceeded }

// As отдаёт сообщение как *domain.UserError.
func (e *limitError) As(target any) bool {
	userErr, ok := target.(**domain.UserError)
	if !ok {
		return false
	}
	*userErr = &domain.UserError{Message: e.notice}
	return true
}

// IsLimitExceeded сообщает, что ошибка — исчерпанный лимит отправок.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, domain.ErrSendLimitExceeded)
}
