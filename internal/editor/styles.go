package editor

import (
	"pagebuilder/internal/domain"
)

// DefaultStyleValue is what the style panel sends when a property is
// reset; it removes the property rather than storing the word.
const DefaultStyleValue = "default"

// applyStyle returns s with prop set (or removed) on the base layer or on
// viewport. s is owned by the caller. ActiveProperties keeps first-set
// order and lists every property present in any layer.
func applyStyle(s *domain.StylesData, viewport, prop, value string) *domain.StylesData {
	if s == nil {
		s = &domain.StylesData{}
	}
	remove := value == "" || value == DefaultStyleValue

	if viewport == "" {
		if remove {
			delete(s.Base, prop)
		} else {
			if s.Base == nil {
				s.Base = make(map[string]string)
			}
			s.Base[prop] = value
		}
	} else {
		layer := s.Viewports[viewport]
		if remove {
			delete(layer, prop)
			if len(layer) == 0 {
				delete(s.Viewports, viewport)
			}
		} else {
			if s.Viewports == nil {
				s.Viewports = make(map[string]map[string]string)
			}
			if layer == nil {
				layer = make(map[string]string)
				s.Viewports[viewport] = layer
			}
			layer[prop] = value
		}
	}

	if stylePresent(s, prop) {
		if !containsString(s.ActiveProperties, prop) {
			s.ActiveProperties = append(s.ActiveProperties, prop)
		}
	} else {
		s.ActiveProperties = removeString(s.ActiveProperties, prop)
	}
	return s
}

func stylePresent(s *domain.StylesData, prop string) bool {
	if _, ok := s.Base[prop]; ok {
		return true
	}
	for _, layer := range s.Viewports {
		if _, ok := layer[prop]; ok {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
