/*

Lowering pipeline

Source Graph (ir, built by a frontend) ->
	inline loop conds ->
Loops in one-block shape ->
	normalize cont ->
Bodies with continue-iterating outputs ->
	normalize ret ->
Exits dissolved into block outputs ->
	thread load stores ->
Mutations visible across blocks ->
	convert to ssa ->
Pure value flow (ssa)

Unused code elimination and a structural lint run after every stage.

*/
package compiler
