package supervisor

import (
	"fmt"
	"os"
	"regexp"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"outrider/pkg/config"
)

// SidecarSpec 清单里一个伴生进程的声明
//
// Path 为空表示声明存在但默认禁用，可以靠环境变量按需开启。
type SidecarSpec struct {
	Path       string `yaml:"path"`
	Args       string `yaml:"args,omitempty"`
	Port       bool   `yaml:"port,omitempty"`
	StopSignal string `yaml:"stop_signal,omitempty"`
}

// Manifest 伴生进程清单，文档顺序即注册顺序
type Manifest struct {
	Sidecars *orderedmap.OrderedMap[string, *SidecarSpec] `yaml:"sidecars"`
}

var sidecarNameRe = regexp.MustCompile(`^[A-Za-z]+[A-Za-z0-9-_]*$`)

// LoadManifest 从 YAML 文件加载清单
func LoadManifest(name string) (*Manifest, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Sidecars: orderedmap.New[string, *SidecarSpec]()}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", name, err)
	}

	if m.Sidecars == nil {
		m.Sidecars = orderedmap.New[string, *SidecarSpec]()
	}

	return m, nil
}

// IsValid 校验清单里所有伴生进程名
func (m *Manifest) IsValid() bool {
	for pair := m.Sidecars.Oldest(); pair != nil; pair = pair.Next() {
		if !sidecarNameRe.MatchString(pair.Key) {
			return false
		}
	}

	return true
}

// Apply 把清单落到配置面并按文档顺序构建描述符
//
// 路径和参数写成配置默认值，同名环境变量可以覆盖；声明了 port 的
// 条目获得端口键，由监督器注入协商钩子。
func (m *Manifest) Apply(env *config.Env) []*Sidecar {
	sidecars := make([]*Sidecar, 0, m.Sidecars.Len())

	for pair := m.Sidecars.Oldest(); pair != nil; pair = pair.Next() {
		name, spec := pair.Key, pair.Value
		if spec == nil {
			spec = &SidecarSpec{}
		}

		pathKey := fmt.Sprintf("sidecars.%s.path", name)
		argsKey := fmt.Sprintf("sidecars.%s.args", name)

		env.SetDefault(pathKey, spec.Path)
		env.SetDefault(argsKey, spec.Args)

		portKey := ""
		if spec.Port {
			portKey = fmt.Sprintf("sidecars.%s.port", name)
		}

		sc := NewSidecar(name, pathKey, argsKey, portKey)
		sc.StopSignal = spec.StopSignal

		sidecars = append(sidecars, sc)
	}

	return sidecars
}

// DefaultManifest 内置清单
//
// 两个常驻伴生进程声明，路径留空即默认禁用，按需通过环境变量
// OUTRIDER_SIDECARS_<NAME>_PATH 开启。
func DefaultManifest() *Manifest {
	m := &Manifest{Sidecars: orderedmap.New[string, *SidecarSpec]()}

	m.Sidecars.Set("trace-agent", &SidecarSpec{Port: true})
	m.Sidecars.Set("metrics-agent", &SidecarSpec{Port: true})

	return m
}
