package server

import (
	"errors"
	"fmt"

	"github.com/any-hub/pypi-stats/internal/config"
	"github.com/any-hub/pypi-stats/internal/stats"
)

// Registry 提供包名/组件名到配置的查询能力，启动阶段构建一次后只读。
type Registry struct {
	packages map[string]config.PackageConfig
	widgets  map[string]stats.Widget

	orderedPackages []config.PackageConfig
	orderedWidgets  []stats.Widget
}

// NewRegistry 根据配置构建查询表，并将组件与其包绑定。
func NewRegistry(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &Registry{
		packages: make(map[string]config.PackageConfig, len(cfg.Packages)),
		widgets:  make(map[string]stats.Widget, len(cfg.Widgets)),
	}

	for _, pkg := range cfg.Packages {
		if _, exists := registry.packages[pkg.PackageName]; exists {
			return nil, fmt.Errorf("duplicate package %s", pkg.PackageName)
		}
		registry.packages[pkg.PackageName] = pkg
		registry.orderedPackages = append(registry.orderedPackages, pkg)
	}

	for _, widgetCfg := range cfg.Widgets {
		if _, exists := registry.widgets[widgetCfg.Name]; exists {
			return nil, fmt.Errorf("duplicate widget %s", widgetCfg.Name)
		}
		var bound *config.PackageConfig
		if widgetCfg.Package != "" {
			pkg, ok := registry.packages[widgetCfg.Package]
			if !ok {
				return nil, fmt.Errorf("widget %s references unknown package %s", widgetCfg.Name, widgetCfg.Package)
			}
			bound = &pkg
		}
		widget := stats.NewWidget(widgetCfg, bound)
		registry.widgets[widget.Name] = widget
		registry.orderedWidgets = append(registry.orderedWidgets, widget)
	}

	return registry, nil
}

// Package 按包名查找。
func (r *Registry) Package(name string) (config.PackageConfig, bool) {
	if r == nil {
		return config.PackageConfig{}, false
	}
	pkg, ok := r.packages[name]
	return pkg, ok
}

// Widget 按组件名查找。
func (r *Registry) Widget(name string) (stats.Widget, bool) {
	if r == nil {
		return stats.Widget{}, false
	}
	widget, ok := r.widgets[name]
	return widget, ok
}

// Packages 按配置顺序返回所有包。
func (r *Registry) Packages() []config.PackageConfig {
	if r == nil || len(r.orderedPackages) == 0 {
		return nil
	}
	return append([]config.PackageConfig(nil), r.orderedPackages...)
}

// Widgets 按配置顺序返回所有组件。
func (r *Registry) Widgets() []stats.Widget {
	if r == nil || len(r.orderedWidgets) == 0 {
		return nil
	}
	return append([]stats.Widget(nil), r.orderedWidgets...)
}
