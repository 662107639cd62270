// Command formsctl drives the forms gateway and the local prover from the
// command line: publish signed forms, fetch them back, and build or check
// membership proofs against a committed root.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/DanTehrani/story-form-interface/pkg/form"
	"github.com/DanTehrani/story-form-interface/pkg/formsdk"
	"github.com/DanTehrani/story-form-interface/pkg/typedsig"
	"github.com/DanTehrani/story-form-interface/pkg/zkproof"
)

const usage = "usage: formsctl form publish --content <path> --key <hex> [--endpoint <url>] | formsctl form get --id <formId> [--endpoint <url>] | formsctl proof root --leaves <path> | formsctl proof make --leaves <path> --index <n> --credential <string> --out <path> | formsctl proof verify --proof <path> --root <decimal>"

func main() {
	if len(os.Args) < 3 {
		failSummary("", usage)
		os.Exit(2)
	}
	switch os.Args[1] + " " + os.Args[2] {
	case "form publish":
		runFormPublish(os.Args[3:])
	case "form get":
		runFormGet(os.Args[3:])
	case "proof root":
		runProofRoot(os.Args[3:])
	case "proof make":
		runProofMake(os.Args[3:])
	case "proof verify":
		runProofVerify(os.Args[3:])
	default:
		failSummary("", usage)
		os.Exit(2)
	}
}

func runFormPublish(args []string) {
	fs := flag.NewFlagSet("form publish", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	contentPath := fs.String("content", "", "path to form content json")
	keyHex := fs.String("key", "", "hex secp256k1 private key")
	endpoint := fs.String("endpoint", envOr("FORMS_ENDPOINT", "http://localhost:8084"), "gateway base URL")
	chainID := fs.Int64("chain-id", 5, "signing domain chain id")
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}
	if strings.TrimSpace(*contentPath) == "" || strings.TrimSpace(*keyHex) == "" {
		failSummary("", "both --content and --key are required")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*contentPath)
	if err != nil {
		failSummary("", "read content failed: "+err.Error())
		os.Exit(1)
	}
	var content form.Content
	if err := json.Unmarshal(raw, &content); err != nil {
		failSummary("", "decode content failed: "+err.Error())
		os.Exit(1)
	}

	keyBytes, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(*keyHex), "0x"))
	if err != nil {
		failSummary("", "decode key failed: "+err.Error())
		os.Exit(1)
	}
	key := secp256k1.PrivKeyFromBytes(keyBytes)
	if content.Owner == "" {
		content.Owner = typedsig.AddressFromPubKey(key.PubKey())
	}
	if content.UnixTime == 0 {
		content.UnixTime = time.Now().Unix()
	}

	id, err := form.DeriveID(content)
	if err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
	domain := typedsig.Domain{Name: "storyform", Version: "1", ChainID: *chainID}
	payload, err := typedsig.BuildFormPayload(domain, id, content)
	if err != nil {
		failSummary(id, err.Error())
		os.Exit(1)
	}
	sig, err := typedsig.Sign(payload, key)
	if err != nil {
		failSummary(id, err.Error())
		os.Exit(1)
	}

	client := formsdk.New(*endpoint)
	resp, err := client.Publish(context.Background(), formsdk.PublishRequest{
		ID:        id,
		Content:   content,
		Signature: sig,
	})
	if err != nil {
		failSummary(id, err.Error())
		os.Exit(1)
	}
	passSummary(resp.Form.ID, map[string]any{"tx_id": resp.Form.TxID, "owner": content.Owner})
}

func runFormGet(args []string) {
	fs := flag.NewFlagSet("form get", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	formID := fs.String("id", "", "form id")
	endpoint := fs.String("endpoint", envOr("FORMS_ENDPOINT", "http://localhost:8084"), "gateway base URL")
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}
	if strings.TrimSpace(*formID) == "" {
		failSummary("", "--id is required")
		os.Exit(2)
	}

	resp, err := formsdk.New(*endpoint).GetForm(context.Background(), *formID)
	if err != nil {
		failSummary(*formID, err.Error())
		os.Exit(1)
	}
	passSummary(resp.Form.ID, map[string]any{
		"title":           resp.Form.Title,
		"indexed":         resp.Indexed,
		"signature_valid": resp.Form.SignatureValid,
	})
}

func runProofRoot(args []string) {
	fs := flag.NewFlagSet("proof root", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	leavesPath := fs.String("leaves", "", "path to json array of decimal leaves")
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}
	prover, err := loadProver(*leavesPath)
	if err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
	root, err := prover.Root()
	if err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
	passSummary("", map[string]any{"merkle_root": root})
}

func runProofMake(args []string) {
	fs := flag.NewFlagSet("proof make", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	leavesPath := fs.String("leaves", "", "path to json array of decimal leaves")
	index := fs.Int("index", -1, "leaf index to prove")
	credential := fs.String("credential", "", "credential pre-image")
	outPath := fs.String("out", "", "path to write the proof json")
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}
	if *index < 0 || strings.TrimSpace(*outPath) == "" {
		failSummary("", "--index and --out are required")
		os.Exit(2)
	}

	prover, err := loadProver(*leavesPath)
	if err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
	proof, err := prover.ProveMembership(*index, []byte(*credential))
	if err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
	raw, err := json.MarshalIndent(proof, "", "  ")
	if err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, raw, 0o644); err != nil {
		failSummary("", "write proof failed: "+err.Error())
		os.Exit(1)
	}
	passSummary("", map[string]any{
		"merkle_root": proof.PublicSignals[zkproof.SignalMerkleRoot],
		"proof_path":  *outPath,
	})
}

func runProofVerify(args []string) {
	fs := flag.NewFlagSet("proof verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	proofPath := fs.String("proof", "", "path to proof json")
	root := fs.String("root", "", "committed merkle root, decimal")
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}
	if strings.TrimSpace(*proofPath) == "" || strings.TrimSpace(*root) == "" {
		failSummary("", "both --proof and --root are required")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*proofPath)
	if err != nil {
		failSummary("", "read proof failed: "+err.Error())
		os.Exit(1)
	}
	var proof zkproof.FullProof
	if err := json.Unmarshal(raw, &proof); err != nil {
		failSummary("", "decode proof failed: "+err.Error())
		os.Exit(1)
	}
	if err := zkproof.VerifyMembership(&proof, *root); err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
	passSummary("", map[string]any{"merkle_root": *root})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadProver(path string) (*zkproof.Prover, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--leaves is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read leaves failed: %v", err)
	}
	var leaves []string
	if err := json.Unmarshal(raw, &leaves); err != nil {
		return nil, fmt.Errorf("decode leaves failed: %v", err)
	}
	return zkproof.NewProver(leaves)
}

func passSummary(formID string, extra map[string]any) {
	printSummary("PASS", formID, "", extra)
}

func failSummary(formID, reason string) {
	printSummary("FAIL", formID, reason, nil)
}

func printSummary(status, formID, reason string, extra map[string]any) {
	out := map[string]any{
		"status":        status,
		"timestamp_utc": time.Now().UTC().Format(time.RFC3339),
	}
	if formID != "" {
		out["form_id"] = formID
	}
	if reason != "" {
		out["reason"] = reason
	}
	for k, v := range extra {
		out[k] = v
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
