package metrics

import (
	"context"
	"log"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-payment-orchestrator/internal/aws"
)

// Recorder publishes payment workflow metrics to CloudWatch. All calls are
// best-effort: a failed put is logged and otherwise ignored, the same as
// audit writes.
type Recorder struct {
	client    aws.CloudWatchAPI
	namespace string
}

// NewRecorder returns a Recorder publishing under the given namespace
// (e.g. "PaymentOrchestrator").
func NewRecorder(client aws.CloudWatchAPI, namespace string) *Recorder {
	return &Recorder{
		client:    client,
		namespace: namespace,
	}
}

// RecordTransition counts one payment status transition.
func (r *Recorder) RecordTransition(ctx context.Context, from, to string) {
	r.put(ctx, "PaymentStateTransition", []cwtypes.Dimension{
		{Name: sdkaws.String("FromStatus"), Value: sdkaws.String(from)},
		{Name: sdkaws.String("ToStatus"), Value: sdkaws.String(to)},
	})
}

// RecordError counts one failed orchestrator operation.
func (r *Recorder) RecordError(ctx context.Context, operation string) {
	r.put(ctx, "PaymentOperationError", []cwtypes.Dimension{
		{Name: sdkaws.String("Operation"), Value: sdkaws.String(operation)},
	})
}

func (r *Recorder) put(ctx context.Context, name string, dims []cwtypes.Dimension) {
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &r.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Dimensions: dims,
				Unit:       cwtypes.StandardUnitCount,
				Value:      sdkaws.Float64(1),
			},
		},
	})
	if err != nil {
		log.Printf("[metrics] put %s failed: %v", name, err)
	}
}
