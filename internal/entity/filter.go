package entity

import (
	"github.com/zigbridge/zigbridge-core/internal/bridge"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
)

// filter decides which gateway entities and features become northbound
// endpoints. Built once from the filter configuration.
type filter struct {
	whiteList map[string]bool
	blackList map[string]bool

	featureBlackList       map[string]bool
	deviceFeatureBlackList map[string]map[string]bool

	switchList map[string]bool
	lightList  map[string]bool
	outletList map[string]bool
}

func newFilter(cfg config.FilterConfig) *filter {
	f := &filter{
		whiteList:              toSet(cfg.WhiteList),
		blackList:              toSet(cfg.BlackList),
		featureBlackList:       toSet(cfg.FeatureBlackList),
		switchList:             toSet(cfg.SwitchList),
		lightList:              toSet(cfg.LightList),
		outletList:             toSet(cfg.OutletList),
		deviceFeatureBlackList: make(map[string]map[string]bool),
	}
	for name, features := range cfg.DeviceFeatureBlackList {
		f.deviceFeatureBlackList[name] = toSet(features)
	}
	return f
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// allow reports whether an entity may be exposed. The black list wins
// over the white list; entries match friendly names and IEEE addresses.
func (f *filter) allow(name, ieee string) bool {
	if f.blackList[name] || (ieee != "" && f.blackList[ieee]) {
		return false
	}
	if len(f.whiteList) == 0 {
		return true
	}
	return f.whiteList[name] || (ieee != "" && f.whiteList[ieee])
}

// allowFeature reports whether a feature survives the global and
// per-device feature black lists. Matches both name and property.
func (f *filter) allowFeature(entity string, feature bridge.Expose) bool {
	if f.featureBlackList[feature.Name] || f.featureBlackList[feature.Property] {
		return false
	}
	if perDevice, ok := f.deviceFeatureBlackList[entity]; ok {
		if perDevice[feature.Name] || perDevice[feature.Property] {
			return false
		}
	}
	return true
}
