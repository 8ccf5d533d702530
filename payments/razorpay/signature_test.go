package razorpay

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/PaulFidika/vipkit/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret    = "test_secret"
	testOrderID   = "order_DBJOWzybf0sJbb"
	testPaymentID = "pay_DGf1Z2IZyL4rBa"
	// hex(HMAC-SHA256("test_secret", "order_DBJOWzybf0sJbb|pay_DGf1Z2IZyL4rBa"))
	testSignature = "ed5e288d08169595f009b6da6138c2464c9e2e96a7810961f09be09213654401"
)

func TestSign_KnownVector(t *testing.T) {
	assert.Equal(t, testSignature, Sign(testSecret, testOrderID, testPaymentID))
}

func TestVerifySignature_Accepts(t *testing.T) {
	ok, err := VerifySignature(testSecret, testOrderID, testPaymentID, testSignature)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifySignature_RejectsEverySingleBitFlip(t *testing.T) {
	for i := 0; i < len(testSignature); i++ {
		for bit := 0; bit < 8; bit++ {
			b := []byte(testSignature)
			b[i] ^= 1 << bit
			ok, err := VerifySignature(testSecret, testOrderID, testPaymentID, string(b))
			require.NoError(t, err)
			if ok {
				t.Fatalf("mutated signature accepted (byte %d bit %d)", i, bit)
			}
		}
	}
}

func TestVerifySignature_RejectsSwappedFields(t *testing.T) {
	ok, err := VerifySignature(testSecret, testPaymentID, testOrderID, testSignature)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySignature_LengthMismatch(t *testing.T) {
	for _, sig := range []string{testSignature[:63], testSignature + "0", strings.ToUpper(testSignature)[:10]} {
		ok, err := VerifySignature(testSecret, testOrderID, testPaymentID, sig)
		require.NoError(t, err)
		assert.False(t, ok, sig)
	}
}

func TestVerifySignature_MissingInputsAreRejectionsNotErrors(t *testing.T) {
	cases := [][3]string{
		{"", testPaymentID, testSignature},
		{testOrderID, "", testSignature},
		{testOrderID, testPaymentID, ""},
	}
	for _, c := range cases {
		// Even without a secret: field checks come first.
		ok, err := VerifySignature("", c[0], c[1], c[2])
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestVerifySignature_MissingSecret(t *testing.T) {
	ok, err := VerifySignature("", testOrderID, testPaymentID, testSignature)
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, payments.ErrNotConfigured))
	assert.Contains(t, err.Error(), "not configured")
}

// flipHex replaces the hex digit at i with a different hex digit.
func flipHex(sig string, i int) string {
	b := []byte(sig)
	if b[i] == '0' {
		b[i] = '1'
	} else {
		b[i] = '0'
	}
	return string(b)
}

func medianDuration(d []time.Duration) time.Duration {
	sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })
	return d[len(d)/2]
}

// A signature right in all but its last digit must not take measurably longer
// to reject than one wrong in its first digit.
func TestVerifySignature_RejectionTimeIndependentOfMatchingPrefix(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	near := flipHex(testSignature, len(testSignature)-1)
	far := flipHex(testSignature, 0)
	require.Equal(t, testSignature[:63], near[:63])

	const rounds, perRound = 41, 500
	sample := func(sig string) time.Duration {
		start := time.Now()
		for i := 0; i < perRound; i++ {
			_, _ = VerifySignature(testSecret, testOrderID, testPaymentID, sig)
		}
		return time.Since(start)
	}
	sample(near)
	sample(far)

	nearT := make([]time.Duration, 0, rounds)
	farT := make([]time.Duration, 0, rounds)
	for r := 0; r < rounds; r++ {
		// Interleave so drift in machine load hits both sides alike.
		if r%2 == 0 {
			nearT = append(nearT, sample(near))
			farT = append(farT, sample(far))
		} else {
			farT = append(farT, sample(far))
			nearT = append(nearT, sample(near))
		}
	}
	n, f := medianDuration(nearT), medianDuration(farT)
	ratio := float64(n) / float64(f)
	t.Logf("median per %d calls: near-miss %v, far-miss %v (ratio %.3f)", perRound, n, f, ratio)
	if ratio > 2 || ratio < 0.5 {
		t.Fatalf("rejection time depends on how much of the signature matches: near %v far %v", n, f)
	}
}

// The two benchmarks should report the same ns/op: a signature that matches
// in all but its last byte must not take longer to reject than one that
// differs in its first byte.
func BenchmarkVerifySignature_NearMiss(b *testing.B) {
	sig := []byte(testSignature)
	sig[len(sig)-1] ^= 1
	s := string(sig)
	for i := 0; i < b.N; i++ {
		_, _ = VerifySignature(testSecret, testOrderID, testPaymentID, s)
	}
}

func BenchmarkVerifySignature_FarMiss(b *testing.B) {
	sig := []byte(testSignature)
	sig[0] ^= 1
	s := string(sig)
	for i := 0; i < b.N; i++ {
		_, _ = VerifySignature(testSecret, testOrderID, testPaymentID, s)
	}
}
