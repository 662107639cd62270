package gate

import (
	"errors"
	"testing"

	"github.com/DanTehrani/story-form-interface/pkg/form"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		settings form.Settings
		want     Requirement
	}{
		{
			name:     "no gate",
			settings: form.Settings{},
			want:     None,
		},
		{
			name:     "empty gate normalizes to none",
			settings: form.Settings{Gate: &form.Gate{}},
			want:     None,
		},
		{
			name:     "allow list only",
			settings: form.Settings{Gate: &form.Gate{AllowedAddresses: []string{"0x1111111111111111111111111111111111111111"}}},
			want:     AllowListOnly,
		},
		{
			name:     "merkle root",
			settings: form.Settings{Gate: &form.Gate{MerkleRoot: "42"}},
			want:     MerkleMembership,
		},
		{
			name: "merkle root wins over allow list",
			settings: form.Settings{Gate: &form.Gate{
				MerkleRoot:       "42",
				AllowedAddresses: []string{"0x1111111111111111111111111111111111111111"},
			}},
			want: MerkleMembership,
		},
		{
			name: "erc721 criteria adds attestation",
			settings: form.Settings{
				Gate:               &form.Gate{MerkleRoot: "42"},
				RespondentCriteria: form.CriteriaERC721,
			},
			want: MerkleMembershipAndAttestation,
		},
		{
			name: "criteria without root stays allow list",
			settings: form.Settings{
				Gate:               &form.Gate{AllowedAddresses: []string{"0x1111111111111111111111111111111111111111"}},
				RespondentCriteria: form.CriteriaERC721,
			},
			want: AllowListOnly,
		},
		{
			name:     "whitespace root is no root",
			settings: form.Settings{Gate: &form.Gate{MerkleRoot: "   "}},
			want:     None,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.settings); got != tc.want {
				t.Fatalf("Classify = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestValidateForPublish(t *testing.T) {
	if err := ValidateForPublish(form.Settings{}); err != nil {
		t.Fatalf("ungated settings: %v", err)
	}
	if err := ValidateForPublish(form.Settings{Gate: &form.Gate{MerkleRoot: "7"}}); err != nil {
		t.Fatalf("rooted gate: %v", err)
	}

	err := ValidateForPublish(form.Settings{Gate: &form.Gate{}})
	if !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured for empty gate, got %v", err)
	}

	err = ValidateForPublish(form.Settings{Gate: &form.Gate{
		AllowedAddresses: []string{"0x1111111111111111111111111111111111111111", "nope"},
	}})
	if !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured for malformed allow-list entry, got %v", err)
	}
}

func TestAllowListed(t *testing.T) {
	g := &form.Gate{AllowedAddresses: []string{"0xAAAA111111111111111111111111111111111111"}}

	if !AllowListed(g, "0xaaaa111111111111111111111111111111111111") {
		t.Fatalf("normalized comparison should match mixed-case entry")
	}
	if !AllowListed(g, " 0xAAAA111111111111111111111111111111111111 ") {
		t.Fatalf("comparison should survive surrounding whitespace")
	}
	if AllowListed(g, "0xbbbb111111111111111111111111111111111111") {
		t.Fatalf("unlisted address matched")
	}
	if AllowListed(g, "garbage") {
		t.Fatalf("malformed address matched")
	}
	if AllowListed(nil, "0xaaaa111111111111111111111111111111111111") {
		t.Fatalf("nil gate matched")
	}
}

func TestRequirementString(t *testing.T) {
	for r, want := range map[Requirement]string{
		None:                           "none",
		AllowListOnly:                  "allow_list",
		MerkleMembership:               "merkle_membership",
		MerkleMembershipAndAttestation: "merkle_membership_and_attestation",
		Requirement(99):                "unknown",
	} {
		if got := r.String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", r, got, want)
		}
	}
}
