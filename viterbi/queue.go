package viterbi

// numBuckets covers every value of an 8-bit branch metric, so a path metric
// never gets more than one lap ahead of the bucket being drained.
const numBuckets = 256

// shadowNode is a candidate for expansion: node (time, state) reached from
// prevState at time-1 with prevInput.
type shadowNode struct {
	time      int32
	state     int32
	prevState int32
	prevInput int32
}

// bucketQueue is a monotone priority queue for path metrics whose per-step
// increments fit in a byte. Bucket b holds the shadow nodes whose path
// metric is congruent to b mod 256. Buckets are LIFO, so equal metrics are
// popped most recent first.
type bucketQueue struct {
	buckets [numBuckets][]shadowNode
	cur     uint8
	n       int
}

// push queues n at delta above the metric of the bucket being drained.
func (q *bucketQueue) push(delta uint8, n shadowNode) {
	b := q.cur + delta
	q.buckets[b] = append(q.buckets[b], n)
	q.n++
}

// pop removes the most recent node with the smallest metric. The cursor only
// moves forward, wrapping at 256.
func (q *bucketQueue) pop() (shadowNode, bool) {
	if q.n == 0 {
		return shadowNode{}, false
	}
	for len(q.buckets[q.cur]) == 0 {
		q.cur++
	}
	b := q.buckets[q.cur]
	n := b[len(b)-1]
	q.buckets[q.cur] = b[:len(b)-1]
	q.n--
	return n, true
}

func (q *bucketQueue) len() int {
	return q.n
}

// reset empties every bucket, keeping their storage.
func (q *bucketQueue) reset() {
	for b := range q.buckets {
		q.buckets[b] = q.buckets[b][:0]
	}
	q.cur = 0
	q.n = 0
}
