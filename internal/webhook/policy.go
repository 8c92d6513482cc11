package webhook

// StatusBucket classifies an order status change for attribution purposes.
type StatusBucket int

const (
	BucketNone StatusBucket = iota
	BucketConversion
	BucketRefund
)

// StatusPolicy partitions BigCommerce order status ids into conversion and
// refund buckets. This encodes the business judgement of which states mean
// confirmed payment, so it is table-driven and configurable rather than
// hard-coded in the router.
//
// BigCommerce status ids:
//
//	1  Pending                  7  Awaiting Payment
//	2  Shipped                  8  Awaiting Pickup
//	3  Partially Shipped        9  Awaiting Shipment
//	4  Refunded                10  Completed
//	5  Cancelled               11  Awaiting Fulfillment
//	6  Declined                12  Manual Verification Required
type StatusPolicy struct {
	conversion map[int]struct{}
	refund     map[int]struct{}
}

// NewStatusPolicy builds a policy from explicit status id lists.
func NewStatusPolicy(conversionIDs, refundIDs []int) StatusPolicy {
	p := StatusPolicy{
		conversion: make(map[int]struct{}, len(conversionIDs)),
		refund:     make(map[int]struct{}, len(refundIDs)),
	}
	for _, id := range conversionIDs {
		p.conversion[id] = struct{}{}
	}
	for _, id := range refundIDs {
		p.refund[id] = struct{}{}
	}
	return p
}

// DefaultStatusPolicy tracks conversions on Shipped, Partially Shipped and
// Completed, refunds on Refunded, Cancelled and Declined. Awaiting
// Fulfillment (11) is deliberately excluded: payment is not yet confirmed.
func DefaultStatusPolicy() StatusPolicy {
	return NewStatusPolicy([]int{2, 3, 10}, []int{4, 5, 6})
}

// Classify returns the bucket for a status id; ids in neither bucket are
// logged only.
func (p StatusPolicy) Classify(statusID int) StatusBucket {
	if _, ok := p.conversion[statusID]; ok {
		return BucketConversion
	}
	if _, ok := p.refund[statusID]; ok {
		return BucketRefund
	}
	return BucketNone
}
