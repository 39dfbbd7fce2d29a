package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordMentionDelivery(t *testing.T) {
	delivered := testutil.ToFloat64(MentionDeliveries.WithLabelValues("delivered"))
	dropped := testutil.ToFloat64(MentionDeliveries.WithLabelValues("dropped"))

	RecordMentionDelivery(2, 1)
	RecordMentionDelivery(0, 3)

	assert.Equal(t, delivered+2, testutil.ToFloat64(MentionDeliveries.WithLabelValues("delivered")))
	assert.Equal(t, dropped+4, testutil.ToFloat64(MentionDeliveries.WithLabelValues("dropped")))
}

func TestRecordAPIRequest(t *testing.T) {
	counter := APIRequestsTotal.WithLabelValues(http.MethodPost, "/commentsOfPhoto/{photoId}", "200")
	before := testutil.ToFloat64(counter)

	RecordAPIRequest(http.MethodPost, "/commentsOfPhoto/{photoId}", http.StatusOK, 12*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
