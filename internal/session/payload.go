package session

import (
	"encoding/json"
	"fmt"
)

// Surfaces observe coordinator pushes three ways: a well-known global, a
// document-level custom event, and a message-style event. The injected
// scripts below keep all three in sync; the structured Data on the event
// carries the same payload for non-webview transports.

const variablesScriptTemplate = `(function(){
  var data = %s;
  window.rampkitVariables = data;
  document.dispatchEvent(new CustomEvent('rampkit:variables', { detail: data }));
  window.dispatchEvent(new MessageEvent('message', { data: { type: 'rampkit:variables', vars: data } }));
})();`

const progressScriptTemplate = `(function(){
  var data = %s;
  window.rampkitProgress = data;
  document.dispatchEvent(new CustomEvent('rampkit:progress', { detail: data }));
  window.dispatchEvent(new MessageEvent('message', { data: { type: 'rampkit:progress', progress: data } }));
})();`

// variablesEvent builds the outbound payload carrying the full variable map.
func variablesEvent(vars map[string]any) OutboundEvent {
	return OutboundEvent{
		Type:   "variables",
		Script: renderScript(variablesScriptTemplate, vars),
		Data:   map[string]any{"vars": vars},
	}
}

// progressEvent builds the outbound onboarding-progress payload.
func progressEvent(currentIndex int, screenID string, totalScreens int) OutboundEvent {
	data := map[string]any{
		"currentIndex": currentIndex,
		"screenId":     screenID,
		"totalScreens": totalScreens,
	}
	return OutboundEvent{
		Type:   "progress",
		Script: renderScript(progressScriptTemplate, data),
		Data:   data,
	}
}

func renderScript(template string, payload any) string {
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(template, string(b))
}
