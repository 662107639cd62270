package zkproof

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/hash"
)

// Prover produces membership and attestation proofs from a locally known
// leaf set. Production proving runs out of process; this prover backs local
// development and the verification-side tests, emitting the same FullProof
// shape an external prover would.
type Prover struct {
	leaves []fr.Element
}

// NewProver builds a prover over the committed leaves, given as decimal
// field-element strings in tree order.
func NewProver(leaves []string) (*Prover, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("%w: empty leaf set", ErrProofInvalid)
	}
	parsed := make([]fr.Element, len(leaves))
	for i, l := range leaves {
		e, err := parseElement(l)
		if err != nil {
			return nil, fmt.Errorf("%w: leaf %d: %v", ErrProofInvalid, i, err)
		}
		parsed[i] = e
	}
	return &Prover{leaves: parsed}, nil
}

// Root returns the Merkle root of the committed set as a decimal string,
// the value a form's gate commits to at publish time.
func (p *Prover) Root() (string, error) {
	root, _, _, err := p.buildProof(0)
	if err != nil {
		return "", err
	}
	return root.String(), nil
}

// ProveMembership proves that the leaf at index belongs to the committed
// set, carrying the attestation hash of the prover's credential so the
// proof cannot be replayed with a different credential.
func (p *Prover) ProveMembership(index int, credentialPreImage []byte) (*FullProof, error) {
	if index < 0 || index >= len(p.leaves) {
		return nil, fmt.Errorf("%w: leaf index %d out of range", ErrProofInvalid, index)
	}
	root, proofSet, numLeaves, err := p.buildProof(uint64(index))
	if err != nil {
		return nil, err
	}
	attestation, err := mimcSum(credentialPreImage)
	if err != nil {
		return nil, err
	}
	var squared fr.Element
	squared.Square(&attestation)

	blob, err := encodeBlob(membershipWitness{
		ProofSet:   proofSet,
		ProofIndex: uint64(index),
		NumLeaves:  numLeaves,
	})
	if err != nil {
		return nil, err
	}
	return &FullProof{
		Proof: blob,
		PublicSignals: map[string]string{
			SignalMerkleRoot:             root.String(),
			SignalAttestationHash:        attestation.String(),
			SignalAttestationHashSquared: squared.String(),
		},
	}, nil
}

// ProveAttestation binds the prover's credential to one submission's
// content hash.
func (p *Prover) ProveAttestation(credentialPreImage []byte, submissionHash string) (*FullProof, error) {
	bound, err := parseElement(submissionHash)
	if err != nil {
		return nil, fmt.Errorf("%w: submission hash: %v", ErrProofInvalid, err)
	}
	attestation, err := mimcSum(credentialPreImage)
	if err != nil {
		return nil, err
	}
	var reduced fr.Element
	reduced.SetBytes(credentialPreImage)
	preimage := reduced.Bytes()

	blob, err := encodeBlob(attestationWitness{PreImage: preimage[:]})
	if err != nil {
		return nil, err
	}
	return &FullProof{
		Proof: blob,
		PublicSignals: map[string]string{
			SignalAttestationHash: attestation.String(),
			SignalSubmissionHash:  bound.String(),
		},
	}, nil
}

func (p *Prover) buildProof(index uint64) (fr.Element, [][]byte, uint64, error) {
	var buf bytes.Buffer
	for _, leaf := range p.leaves {
		b := leaf.Bytes()
		buf.Write(b[:])
	}
	rootBytes, proofSet, numLeaves, err := merkletree.BuildReaderProof(&buf, hash.MIMC_BN254.New(), fr.Bytes, index)
	if err != nil {
		return fr.Element{}, nil, 0, fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	var root fr.Element
	root.SetBytes(rootBytes)
	return root, proofSet, numLeaves, nil
}
