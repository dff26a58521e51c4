package config

import "testing"

func TestValidNetworkName(t *testing.T) {
	for _, name := range []string{"tmobile", "vodafone", "orange", "consortium", "devnet", "testnet"} {
		if !ValidNetworkName(name) {
			t.Errorf("expected %q to be a valid network name", name)
		}
	}
	if ValidNetworkName("sprint") {
		t.Error("unlisted network name should be invalid")
	}
}

func TestLoadPresetDevnet(t *testing.T) {
	preset, err := LoadPreset(NetworkDevnet, "")
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if preset.ChainID != "sp-cdr-devnet" {
		t.Errorf("ChainID = %q", preset.ChainID)
	}
	if len(preset.Genesis.Validators) != 1 {
		t.Fatalf("genesis validators = %d, want 1", len(preset.Genesis.Validators))
	}
	if preset.Consensus.QuorumSize != 1 {
		t.Errorf("QuorumSize = %d, want 1", preset.Consensus.QuorumSize)
	}
}

func TestLoadPresetConsortiumAppliesQuorumDefault(t *testing.T) {
	preset, err := LoadPreset(NetworkConsortium, "")
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if len(preset.Genesis.Validators) != 4 {
		t.Fatalf("genesis validators = %d, want 4", len(preset.Genesis.Validators))
	}
	// quorum defaults to floor(2n/3)+1 = floor(8/3)+1 = 2+1 = 3
	if preset.Consensus.QuorumSize != 3 {
		t.Errorf("QuorumSize = %d, want 3", preset.Consensus.QuorumSize)
	}
}

func TestLoadPresetUnknownNetwork(t *testing.T) {
	if _, err := LoadPreset(NetworkName("sprint"), ""); err == nil {
		t.Fatal("expected error for unknown network")
	}
}

func TestNetworkPresetValidateRequiresGenesis(t *testing.T) {
	p := &NetworkPreset{ChainID: "x"}
	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error for empty genesis validators")
	}
}

func TestSubstituteEnvVarsUsesDefaultWhenUnset(t *testing.T) {
	got := substituteEnvVars("url: ${SOME_UNSET_VAR:-fallback}")
	if got != "url: fallback" {
		t.Errorf("substituteEnvVars = %q, want url: fallback", got)
	}
}

func TestSubstituteEnvVarsPrefersEnv(t *testing.T) {
	t.Setenv("SOME_TEST_VAR", "from-env")
	got := substituteEnvVars("url: ${SOME_TEST_VAR:-fallback}")
	if got != "url: from-env" {
		t.Errorf("substituteEnvVars = %q, want url: from-env", got)
	}
}
