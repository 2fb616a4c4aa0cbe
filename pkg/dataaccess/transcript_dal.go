package dataaccess

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	transcriptDalName    = "transcript_dal"
	transcriptCollection = "transcripts"
)

// TranscriptDal is the data access layer for archived transcripts.
type TranscriptDal interface {
	// SaveTranscript saves the transcript of a closed ticket.
	SaveTranscript(ctx context.Context, t *entities.Transcript) error
}

type transcriptDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client

	// database is the name of the database the collection lives in.
	database string
}

// NewTranscriptDal creates a new transcript data access layer.
func NewTranscriptDal(l *slog.Logger, client *mongo.Client, database string) TranscriptDal {
	return &transcriptDalImpl{
		l:        l.With(slog.String(logging.KeyDal, transcriptDalName)),
		client:   client,
		database: database,
	}
}

func (d *transcriptDalImpl) SaveTranscript(ctx context.Context, transcript *entities.Transcript) error {
	collection := d.client.Database(d.database).Collection(transcriptCollection)

	monitoring.MongoTotalRequests.WithLabelValues(transcriptDalName, "save_transcript", d.database, transcriptCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(transcriptDalName, "save_transcript", d.database, transcriptCollection))
	defer t.ObserveDuration()

	if _, err := collection.InsertOne(ctx, transcript); err != nil {
		return fmt.Errorf("error inserting transcript: %w", err)
	}

	d.l.Debug("Transcript archived",
		slog.String(logging.KeyGuild, transcript.Ticket.GuildID),
		slog.String(logging.KeyTicket, transcript.Ticket.ID),
	)
	return nil
}
