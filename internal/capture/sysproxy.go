package capture

import (
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"xybclock/internal/common/logger"
)

const settingsKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Internet Settings`

var (
	proxyEnableRe = regexp.MustCompile(`ProxyEnable\s+REG_DWORD\s+0x(\d+)`)
	proxyServerRe = regexp.MustCompile(`ProxyServer\s+REG_SZ\s+(.+)`)
)

// commandRunner executes one reg.exe invocation. Swappable for tests.
type commandRunner func(args ...string) (string, error)

func regRunner(args ...string) (string, error) {
	out, err := exec.Command("reg", args...).CombinedOutput()
	return string(out), err
}

// Guard points the Windows per-user proxy at the capture listener for the
// duration of a capture run and restores the previous setting afterwards.
// The WeChat client follows that setting, which is what routes the
// mini-program's traffic through our listener.
//
// On other platforms every method is a no-op: there is no uniform system
// proxy to flip, so the operator configures routing themselves.
type Guard struct {
	mu        sync.Mutex
	proxyAddr string
	log       logger.Logger
	run       commandRunner
	supported bool

	acquired      bool
	originServer  string
	originEnabled bool
}

func NewGuard(proxyAddr string, log logger.Logger) *Guard {
	return &Guard{
		proxyAddr: proxyAddr,
		log:       log,
		run:       regRunner,
		supported: runtime.GOOS == "windows",
	}
}

// Acquire snapshots the current proxy setting and points it at the capture
// listener. Calling it again while held does nothing.
func (g *Guard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.supported || g.acquired {
		return nil
	}

	g.originServer, g.originEnabled = g.current()
	if err := g.set(g.proxyAddr); err != nil {
		return fmt.Errorf("enabling system proxy: %w", err)
	}
	g.acquired = true
	g.log.Info("system proxy redirected", map[string]interface{}{
		"proxy":  g.proxyAddr,
		"origin": g.originServer,
	})
	return nil
}

// Reassert re-applies the redirection if something else changed the setting
// mid-capture. WeChat and VPN clients are known to do that.
func (g *Guard) Reassert() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.supported || !g.acquired {
		return nil
	}

	server, enabled := g.current()
	if enabled && server == g.proxyAddr {
		return nil
	}
	g.log.Warn("system proxy drifted, re-applying", map[string]interface{}{"found": server})
	return g.set(g.proxyAddr)
}

// Release restores the snapshot taken by Acquire. Safe to call multiple
// times and from deferred paths.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.supported || !g.acquired {
		return nil
	}
	g.acquired = false

	if g.originEnabled && g.originServer != "" && g.originServer != g.proxyAddr {
		g.log.Info("system proxy restored", map[string]interface{}{"origin": g.originServer})
		return g.set(g.originServer)
	}
	g.log.Info("system proxy disabled", nil)
	return g.disable()
}

func (g *Guard) current() (server string, enabled bool) {
	out, err := g.run("query", settingsKey, "/v", "ProxyEnable")
	if err == nil {
		if m := proxyEnableRe.FindStringSubmatch(out); m != nil {
			enabled = m[1] == "1"
		}
	}
	if !enabled {
		return "", false
	}
	out, err = g.run("query", settingsKey, "/v", "ProxyServer")
	if err != nil {
		return "", false
	}
	m := proxyServerRe.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func (g *Guard) set(server string) error {
	if _, err := g.run("add", settingsKey, "/v", "ProxyEnable", "/t", "REG_DWORD", "/d", "1", "/f"); err != nil {
		return err
	}
	_, err := g.run("add", settingsKey, "/v", "ProxyServer", "/d", server, "/f")
	return err
}

func (g *Guard) disable() error {
	if _, err := g.run("add", settingsKey, "/v", "ProxyEnable", "/t", "REG_DWORD", "/d", "0", "/f"); err != nil {
		return err
	}
	_, err := g.run("add", settingsKey, "/v", "ProxyServer", "/d", "", "/f")
	return err
}
