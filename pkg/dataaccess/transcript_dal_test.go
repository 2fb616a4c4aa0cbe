package dataaccess

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketdesk/pkg/custom"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func testTranscript() *entities.Transcript {
	closedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &entities.Transcript{
		ID: "9a3c1f0e-4d1b-4a52-8f5e-1c3b2a9d8e7f",
		Ticket: entities.Ticket{
			ID:        "0001",
			GuildID:   "guild-1",
			ChannelID: "channel-1",
			UserID:    "user-1",
			Type:      entities.TicketTypeMiddleman,
			Tier:      entities.TierMid,
			ClaimedBy: "mid-1",
			Status:    entities.StatusClosed,
			CreatedAt: closedAt.Add(-time.Hour),
		},
		ClosedBy:     "mid-1",
		ClosedAt:     custom.Datetime(closedAt),
		MessageCount: 2,
		Content:      "[2024-03-01 11:00:00 UTC] alice: hello\n",
	}
}

func TestTranscriptDal_SaveTranscript(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		dal := NewTranscriptDal(l, mt.Client, "ticketdesk")
		err := dal.SaveTranscript(context.Background(), testTranscript())
		require.NoError(mt, err)
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		dal := NewTranscriptDal(l, mt.Client, "ticketdesk")
		err := dal.SaveTranscript(context.Background(), testTranscript())
		require.Error(mt, err)
		require.True(mt, mongo.IsDuplicateKeyError(err))
	})
}
