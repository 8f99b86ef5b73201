package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-labs/aegis-core/pkg/classification"
)

type markedEntity struct {
	marking classification.Marking
}

func (e markedEntity) Marking() classification.Marking { return e.marking }

func entity(level classification.Level, comps []classification.Compartment, portions []string) HasMarking {
	return markedEntity{marking: classification.NewMarking(level, comps, portions)}
}

func TestAggregate_Empty(t *testing.T) {
	r := NewAggregator(nil).Aggregate(nil, nil)

	require.Equal(t, classification.Unclassified, r.HighestClassification)
	require.NotNil(t, r.AllPortionMarkings)
	require.Empty(t, r.AllPortionMarkings)
	require.NotNil(t, r.AllCompartments)
	require.Empty(t, r.AllCompartments)
	require.Zero(t, r.EntityCount)
	require.Nil(t, r.Signature)
	require.Empty(t, r.SignatureAlgorithm)
}

func TestAggregate_MaxAndUnion(t *testing.T) {
	entities := []HasMarking{
		entity(classification.CUI, nil, []string{"(CUI)"}),
		entity(classification.Secret,
			[]classification.Compartment{classification.Humint},
			[]string{"(S//HUMINT)"}),
		entity(classification.Confidential,
			[]classification.Compartment{classification.Sigint, classification.Humint},
			[]string{"(C)", "(S//HUMINT)"}),
	}

	r := NewAggregator(nil).Aggregate(entities, nil)

	require.Equal(t, classification.Secret, r.HighestClassification)
	require.Equal(t, []string{"(C)", "(CUI)", "(S//HUMINT)"}, r.AllPortionMarkings)
	require.Equal(t, []classification.Compartment{classification.Humint, classification.Sigint}, r.AllCompartments)
	require.Equal(t, 3, r.EntityCount)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	entities := []HasMarking{
		entity(classification.TopSecret, []classification.Compartment{classification.TalentKeyhole}, []string{"(TS//TK)"}),
		entity(classification.Unclassified, nil, []string{"(U)"}),
		entity(classification.Secret, []classification.Compartment{classification.Humint}, nil),
		entity(classification.CUI, []classification.Compartment{classification.Noforn}, []string{"(CUI)"}),
	}
	key := []byte("order-independence-key")
	agg := NewAggregator(nil)

	baseline := agg.Aggregate(entities, key)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := make([]HasMarking, len(entities))
		copy(shuffled, entities)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		r := agg.Aggregate(shuffled, key)
		require.Equal(t, baseline.HighestClassification, r.HighestClassification)
		require.Equal(t, baseline.AllPortionMarkings, r.AllPortionMarkings)
		require.Equal(t, baseline.AllCompartments, r.AllCompartments)
		require.NotNil(t, r.Signature)
		require.Equal(t, *baseline.Signature, *r.Signature)
	}
}

func TestAggregate_SignedAndVerifies(t *testing.T) {
	key, err := DeriveSigningKey([]byte("master secret"), "tenant-a")
	require.NoError(t, err)

	r := NewAggregator(nil).Aggregate([]HasMarking{
		entity(classification.Secret, []classification.Compartment{classification.Humint}, nil),
	}, key)

	require.NotNil(t, r.Signature)
	require.Equal(t, SignatureAlgorithm, r.SignatureAlgorithm)
	require.Regexp(t, "^[0-9a-f]{64}$", *r.Signature)
	require.True(t, Verify(r, key))
}

func TestVerify_RejectsTamperAndWrongKey(t *testing.T) {
	key := []byte("signing key")
	r := NewAggregator(nil).Aggregate([]HasMarking{
		entity(classification.Confidential, nil, []string{"(C)"}),
	}, key)
	require.True(t, Verify(r, key))

	tampered := r
	tampered.HighestClassification = classification.Unclassified
	require.False(t, Verify(tampered, key))

	require.False(t, Verify(r, []byte("other key")))
}

func TestVerify_UnsignedNeverVerifies(t *testing.T) {
	r := NewAggregator(nil).Aggregate(nil, nil)
	require.False(t, Verify(r, []byte("any key")))
}

func TestDeriveSigningKey(t *testing.T) {
	master := []byte("master secret")

	a, err := DeriveSigningKey(master, "tenant-a")
	require.NoError(t, err)
	require.Len(t, a, 32)

	again, err := DeriveSigningKey(master, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, a, again)

	b, err := DeriveSigningKey(master, "tenant-b")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	_, err = DeriveSigningKey(nil, "tenant-a")
	require.ErrorIs(t, err, ErrEmptyMasterSecret)
}
