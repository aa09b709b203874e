// Package testutil provides scripted fakes for workflow tests.
//
// ScriptedInvoker replays queued agent results per agent id and records every
// call so tests can assert on call counts, order and rendered prompts.
package testutil
