package tools

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// OS families with a package manager template.
const (
	OSMacOS   = "macos"
	OSDebian  = "debian"
	OSFedora  = "fedora"
	OSArch    = "arch"
	OSWindows = "windows"
)

// osAliases maps user and runtime spellings to an OS family.
var osAliases = map[string]string{
	"mac": OSMacOS, "macos": OSMacOS, "osx": OSMacOS, "darwin": OSMacOS,
	"linux": OSDebian, "ubuntu": OSDebian, "debian": OSDebian,
	"fedora": OSFedora, "centos": OSFedora, "rhel": OSFedora,
	"arch": OSArch, "manjaro": OSArch,
	"windows": OSWindows, "win": OSWindows,
}

// packageManagers renders the generic install commands for a package name.
var packageManagers = map[string]func(pkg string) []string{
	OSMacOS:   func(p string) []string { return []string{"brew install " + p} },
	OSDebian:  func(p string) []string { return []string{"sudo apt-get update", "sudo apt-get install -y " + p} },
	OSFedora:  func(p string) []string { return []string{"sudo dnf install -y " + p} },
	OSArch:    func(p string) []string { return []string{"sudo pacman -S --noconfirm " + p} },
	OSWindows: func(p string) []string { return []string{"winget install --id " + p + " -e"} },
}

// softwareAliases maps common names to the install table key.
var softwareAliases = map[string]string{
	"node": "nodejs", "npm": "nodejs",
	"go": "golang",
	"postgres": "postgresql", "psql": "postgresql",
	"code": "vscode", "vs-code": "vscode", "visual-studio-code": "vscode",
	"python3": "python", "pip": "python",
	"k8s": "kubectl",
}

// InstallTable overrides the generic commands for software whose package
// names differ between managers.
var InstallTable = map[string]map[string][]string{
	"nodejs": {
		OSMacOS:   {"brew install node"},
		OSDebian:  {"sudo apt-get update", "sudo apt-get install -y nodejs npm"},
		OSFedora:  {"sudo dnf install -y nodejs npm"},
		OSArch:    {"sudo pacman -S --noconfirm nodejs npm"},
		OSWindows: {"winget install --id OpenJS.NodeJS.LTS -e"},
	},
	"python": {
		OSMacOS:   {"brew install python"},
		OSDebian:  {"sudo apt-get update", "sudo apt-get install -y python3 python3-pip"},
		OSFedora:  {"sudo dnf install -y python3 python3-pip"},
		OSArch:    {"sudo pacman -S --noconfirm python python-pip"},
		OSWindows: {"winget install --id Python.Python.3.12 -e"},
	},
	"docker": {
		OSMacOS:   {"brew install --cask docker"},
		OSDebian:  {"sudo apt-get update", "sudo apt-get install -y docker.io", "sudo usermod -aG docker $USER"},
		OSFedora:  {"sudo dnf install -y moby-engine", "sudo systemctl enable --now docker"},
		OSArch:    {"sudo pacman -S --noconfirm docker", "sudo systemctl enable --now docker"},
		OSWindows: {"winget install --id Docker.DockerDesktop -e"},
	},
	"golang": {
		OSMacOS:   {"brew install go"},
		OSDebian:  {"sudo apt-get update", "sudo apt-get install -y golang-go"},
		OSFedora:  {"sudo dnf install -y golang"},
		OSArch:    {"sudo pacman -S --noconfirm go"},
		OSWindows: {"winget install --id GoLang.Go -e"},
	},
	"git": {
		OSWindows: {"winget install --id Git.Git -e"},
	},
	"vscode": {
		OSMacOS:   {"brew install --cask visual-studio-code"},
		OSDebian:  {"sudo snap install code --classic"},
		OSFedora:  {"sudo snap install code --classic"},
		OSArch:    {"yay -S visual-studio-code-bin"},
		OSWindows: {"winget install --id Microsoft.VisualStudioCode -e"},
	},
	"kubectl": {
		OSMacOS:   {"brew install kubectl"},
		OSDebian:  {"sudo snap install kubectl --classic"},
		OSWindows: {"winget install --id Kubernetes.kubectl -e"},
	},
	"terraform": {
		OSMacOS:   {"brew tap hashicorp/tap", "brew install hashicorp/tap/terraform"},
		OSWindows: {"winget install --id Hashicorp.Terraform -e"},
	},
	"postgresql": {
		OSMacOS:   {"brew install postgresql@16"},
		OSDebian:  {"sudo apt-get update", "sudo apt-get install -y postgresql"},
		OSFedora:  {"sudo dnf install -y postgresql-server", "sudo postgresql-setup --initdb"},
		OSWindows: {"winget install --id PostgreSQL.PostgreSQL.16 -e"},
	},
}

// NormalizeOS maps an OS spelling to a family; empty selects the host OS.
func NormalizeOS(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = runtime.GOOS
	}
	if family, ok := osAliases[name]; ok {
		return family, nil
	}
	families := make([]string, 0, len(packageManagers))
	for f := range packageManagers {
		families = append(families, f)
	}
	sort.Strings(families)
	return "", fmt.Errorf("unsupported OS %q (supported: %s)", name, strings.Join(families, ", "))
}

// InstallCommands returns the commands that install software on osName.
func InstallCommands(software, osName string) (string, []string, error) {
	family, err := NormalizeOS(osName)
	if err != nil {
		return "", nil, err
	}
	key := strings.ToLower(strings.TrimSpace(software))
	if key == "" {
		return family, nil, fmt.Errorf("software name is required")
	}
	if alias, ok := softwareAliases[key]; ok {
		key = alias
	}
	if cmds, ok := InstallTable[key][family]; ok {
		return family, append([]string(nil), cmds...), nil
	}
	return family, packageManagers[family](key), nil
}

func (h *handlers) installCommands(_ context.Context, args map[string]any) (string, error) {
	software := str(args, "software")
	family, cmds, err := InstallCommands(software, str(args, "os"))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Install %s on %s:\n", software, family)
	for _, c := range cmds {
		fmt.Fprintf(&b, "  %s\n", c)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
