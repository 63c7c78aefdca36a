package sequence

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestNext(t *testing.T) {
	tests := map[string]struct {
		partition string
		queryErr  error
		want      int64
		wantErr   string
	}{
		"returns reserved number": {partition: "documents.products", want: 4},
		"wraps query error":       {partition: "documents.orders", queryErr: errors.New("boom"), wantErr: "next sequence documents.orders: boom"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			mock := newMock(t)
			exp := mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO event_sequence AS s")).WithArgs(tt.partition)
			if tt.queryErr != nil {
				exp.WillReturnError(tt.queryErr)
			} else {
				exp.WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(tt.want))
			}

			got, err := NewCounter(mock).Next(context.Background(), tt.partition)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
