package sigfox

import "testing"

func TestGenerateReplicasLength(t *testing.T) {
	replica0 := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	r1, r2 := generateReplicas(replica0)

	if len(r1) != len(replica0) || len(r2) != len(replica0) {
		t.Fatalf("replica lengths do not match replica0")
	}
}

func TestGenerateReplicasDeterministic(t *testing.T) {
	replica0 := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	r1a, r2a := generateReplicas(replica0)
	r1b, r2b := generateReplicas(replica0)

	if string(r1a) != string(r1b) || string(r2a) != string(r2b) {
		t.Fatalf("generateReplicas is not deterministic")
	}
}

func TestGenerateReplicasDistinctFromSourceAndEachOther(t *testing.T) {
	replica0 := []byte{0x01, 0x02, 0x03, 0x04}
	r1, r2 := generateReplicas(replica0)

	if string(r1) == string(replica0) {
		t.Fatalf("replica1 equals replica0")
	}
	if string(r2) == string(replica0) {
		t.Fatalf("replica2 equals replica0")
	}
	if string(r1) == string(r2) {
		t.Fatalf("replica1 equals replica2")
	}
}

func TestGenerateReplicasReplica2IsByteReversed(t *testing.T) {
	replica0 := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	_, r2 := generateReplicas(replica0)

	for i := range replica0 {
		if r2[i] != replica0[len(replica0)-1-i] {
			t.Fatalf("replica2[%d] = %#x, want %#x", i, r2[i], replica0[len(replica0)-1-i])
		}
	}
}
