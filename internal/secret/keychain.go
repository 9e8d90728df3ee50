package secret

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// KeychainService is the service label binding passwords are filed under.
const KeychainService = "pagebuilder-bindings"

// keychainTool abstracts the OS credential CLI. macOS ships `security`,
// most Linux desktops ship `secret-tool` (libsecret).
type keychainTool interface {
	set(service, account string, value []byte) error
	get(service, account string) ([]byte, bool, error)
	delete(service, account string) error
}

// KeychainStore keeps binding passwords in the OS credential store.
type KeychainStore struct {
	service string
	tool    keychainTool
}

// NewKeychainStore picks the credential tool for the running OS.
func NewKeychainStore() *KeychainStore {
	var tool keychainTool = securityCLI{}
	if runtime.GOOS != "darwin" {
		tool = secretToolCLI{}
	}
	return &KeychainStore{service: KeychainService, tool: tool}
}

func (k *KeychainStore) Set(key string, value []byte) error {
	if err := k.tool.set(k.service, key, value); err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns nil, nil when nothing is stored under key.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	v, ok, err := k.tool.get(k.service, key)
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (k *KeychainStore) Delete(key string) error {
	if err := k.tool.delete(k.service, key); err != nil {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}

// ── macOS ───────────────────────────────────────────────────

type securityCLI struct{}

func (securityCLI) set(service, account string, value []byte) error {
	cmd := exec.Command("security", "add-generic-password",
		"-a", account, "-s", service, "-w", string(value), "-U")
	return runQuiet(cmd)
}

func (securityCLI) get(service, account string) ([]byte, bool, error) {
	out, err := exec.Command("security", "find-generic-password",
		"-a", account, "-s", service, "-w").Output()
	if err != nil {
		// 44: item not found
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 44 {
			return nil, false, nil
		}
		return nil, false, err
	}
	return bytes.TrimSpace(out), true, nil
}

func (securityCLI) delete(service, account string) error {
	cmd := exec.Command("security", "delete-generic-password", "-a", account, "-s", service)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 44 {
			return nil
		}
		return err
	}
	return nil
}

// ── libsecret ───────────────────────────────────────────────

type secretToolCLI struct{}

func (secretToolCLI) set(service, account string, value []byte) error {
	cmd := exec.Command("secret-tool", "store",
		"--label="+service+" "+account, "service", service, "account", account)
	cmd.Stdin = bytes.NewReader(value)
	return runQuiet(cmd)
}

func (secretToolCLI) get(service, account string) ([]byte, bool, error) {
	out, err := exec.Command("secret-tool", "lookup", "service", service, "account", account).Output()
	if err != nil {
		// lookup exits 1 with no output for a missing item
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && len(out) == 0 {
			return nil, false, nil
		}
		return nil, false, err
	}
	return out, true, nil
}

func (secretToolCLI) delete(service, account string) error {
	// clear succeeds whether or not the item exists
	return runQuiet(exec.Command("secret-tool", "clear", "service", service, "account", account))
}

// runQuiet runs cmd and folds its combined output into the error.
func runQuiet(cmd *exec.Cmd) error {
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}
	return nil
}
