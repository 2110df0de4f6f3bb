// Package lexdef loads declarative lexer definitions and compiles them into
// machine state functions.
//
// A definition names its item types and lists its states. Each state is an
// ordered list of rules; the first rule whose matcher succeeds applies its
// action and names the next state:
//
//	states:
//	  init:
//	    rules:
//	      - accept_run: "0123456789"
//	        emit: NUM
//	        next: init
//	      - eof: true
//
// Definitions are written in CUE or YAML (LoadFile picks by extension).
// Check reports structural errors that block compilation. Lint reports
// conditions the engine would only discover mid-run, such as a next state
// that is not declared.
package lexdef
