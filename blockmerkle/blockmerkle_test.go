package blockmerkle

import (
	"testing"
)

func leaf(b byte) Commitment {
	var c Commitment
	c[0] = b
	return c
}

func TestAppendAdvancesRootAndSize(t *testing.T) {
	tree := New()
	if tree.Size() != 0 {
		t.Fatal("new tree must be empty")
	}
	root0 := tree.Root()

	idx, root1, err := tree.Append(leaf(1))
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Fatalf("want first index 0, got %d", idx)
	}
	if root0 == root1 {
		t.Fatal("root must change after append")
	}
	if tree.Size() != 1 {
		t.Fatalf("want size 1, got %d", tree.Size())
	}

	_, root2, err := tree.Append(leaf(2))
	if err != nil {
		t.Fatal(err)
	}
	if root1 == root2 {
		t.Fatal("root must change after second append")
	}
}

func TestProofRoundTrip(t *testing.T) {
	tree := New()
	var commitments []Commitment
	for i := byte(0); i < 10; i++ {
		c := leaf(i)
		commitments = append(commitments, c)
		if _, _, err := tree.Append(c); err != nil {
			t.Fatal(err)
		}
	}
	root := tree.Root()

	for i, c := range commitments {
		proof, err := tree.Proof(uint64(i))
		if err != nil {
			t.Fatalf("leaf %d: %v", i, err)
		}
		if !VerifyProof(c, proof, root) {
			t.Fatalf("leaf %d: proof failed to verify", i)
		}
	}
}

func TestProofRejectsWrongCommitment(t *testing.T) {
	tree := New()
	tree.Append(leaf(1))
	tree.Append(leaf(2))
	root := tree.Root()

	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatal(err)
	}
	if VerifyProof(leaf(99), proof, root) {
		t.Fatal("proof must not verify against a different commitment")
	}
}

func TestProofRejectsWrongRoot(t *testing.T) {
	tree := New()
	tree.Append(leaf(1))
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatal(err)
	}
	var wrongRoot [32]byte
	wrongRoot[0] = 0xff
	if VerifyProof(leaf(1), proof, wrongRoot) {
		t.Fatal("proof must not verify against a different root")
	}
}

func TestProofOutOfRangeIndex(t *testing.T) {
	tree := New()
	tree.Append(leaf(1))
	if _, err := tree.Proof(5); err != ErrBadIndex {
		t.Fatalf("want ErrBadIndex, got %v", err)
	}
}

func TestLightClientRootIsFieldReduced(t *testing.T) {
	tree := New()
	tree.Append(leaf(1))
	root := tree.Root()
	fieldElem := LightClientRoot(root)
	if fieldElem == nil || fieldElem.Sign() < 0 {
		t.Fatal("light client root must be a non-negative field element")
	}
	// Deterministic: same root always reduces to the same field element.
	if LightClientRoot(root).Cmp(fieldElem) != 0 {
		t.Fatal("LightClientRoot is not deterministic")
	}
}

func TestAppendManyKeepsRootDeterministic(t *testing.T) {
	treeA := New()
	treeB := New()
	for i := byte(0); i < 50; i++ {
		treeA.Append(leaf(i))
		treeB.Append(leaf(i))
	}
	if treeA.Root() != treeB.Root() {
		t.Fatal("identical append sequences must produce identical roots")
	}
}
