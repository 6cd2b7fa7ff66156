package main

import (
	"fmt"

	"lendledger/internal/adapter/notify"
	"lendledger/internal/adapter/receipt"
	"lendledger/internal/adapter/repository/mysql"
	"lendledger/internal/config"
	domainreceipt "lendledger/internal/domain/receipt"
	"lendledger/internal/infrastructure/db"
	"lendledger/internal/infrastructure/logging"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// loadConfig reads and validates the environment and configures logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

type stores struct {
	db       *gorm.DB
	loans    *mysql.LoanRepository
	parts    *mysql.ParticipationRepository
	banks    *mysql.BankDetailRepository
	payments *mysql.PaymentRepository
	users    *mysql.UserRepository
	tx       *mysql.GormUoW
}

func openStores(cfg *config.Config) (*stores, error) {
	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	return &stores{
		db:       gdb,
		loans:    mysql.NewLoanRepository(gdb),
		parts:    mysql.NewParticipationRepository(gdb),
		banks:    mysql.NewBankDetailRepository(gdb),
		payments: mysql.NewPaymentRepository(gdb),
		users:    mysql.NewUserRepository(gdb),
		tx:       mysql.NewGormUoW(gdb),
	}, nil
}

func (s *stores) close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newSink always logs; SMTP delivery is added when configured. The queue
// keeps mail latency off the request path.
func newSink(cfg *config.Config, s *stores) *notify.Queue {
	sink := notify.Fanout{notify.LogSink{}}
	if cfg.MailEnabled() {
		sink = append(sink, notify.NewEmailSink(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		}, s.users, logrus.StandardLogger()))
	}
	return notify.NewQueue(sink, 512)
}

func newReceiptStore(cfg *config.Config) (domainreceipt.Store, error) {
	if !cfg.ReceiptsEnabled() {
		logrus.Warn("receipts: RECEIPT_BASE_URL not set; receipt links are unavailable")
		return nil, nil
	}
	return receipt.NewSigner(cfg.ReceiptBaseURL, []byte(cfg.ReceiptSigningKey), cfg.ReceiptURLTTL)
}
