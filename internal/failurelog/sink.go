package failurelog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Rowpipe/internal/config"
	"github.com/shaiso/Rowpipe/internal/domain"
	"github.com/shaiso/Rowpipe/internal/mq"
	"github.com/shaiso/Rowpipe/internal/repo"
)

// Sink — открытый журнал ошибок.
type Sink interface {
	Append(ctx context.Context, rec domain.FailureRecord) error
	Close() error
}

// Open открывает журнал по настройкам. Для драйвера none возвращает nil.
func Open(ctx context.Context, s config.FailureLogSettings, logger *slog.Logger) (Sink, error) {
	switch s.Driver {
	case config.DriverNone, "":
		return nil, nil

	case config.DriverFile:
		f, err := OpenFile(s.Path)
		if err != nil {
			return nil, err
		}
		return f, nil

	case config.DriverPostgres:
		pool, err := repo.NewPool(ctx, s.DSN)
		if err != nil {
			return nil, err
		}
		r := repo.NewFailureRepo(pool)
		if err := r.EnsureSchema(ctx); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil

	case config.DriverSQLite:
		r, err := repo.OpenSQLite(s.DSN)
		if err != nil {
			return nil, err
		}
		return r, nil

	case config.DriverAMQP:
		conn, err := mq.NewConnection(s.URL, logger)
		if err != nil {
			return nil, err
		}
		if err := mq.SetupTopology(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setup amqp topology: %w", err)
		}
		return &amqpSink{Publisher: mq.NewPublisher(conn, logger), conn: conn}, nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, s.Driver)
}

// amqpSink владеет соединением, на котором публикует.
type amqpSink struct {
	*mq.Publisher
	conn *mq.Connection
}

func (s *amqpSink) Close() error {
	return s.conn.Close()
}

// BatchPublisher возвращает издателя событий, если журнал ведётся в RabbitMQ.
func BatchPublisher(sink Sink) (*mq.Publisher, bool) {
	s, ok := sink.(*amqpSink)
	if !ok {
		return nil, false
	}
	return s.Publisher, true
}
