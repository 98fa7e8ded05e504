/*
Package dsl compiles declarative behavior tree definitions into bt trees.

Definitions are YAML or JSON documents. Composite and decorator nodes are
built in; leaves refer to actions and conditions registered by name in a
registry.Registry, or to inline expr-lang expressions evaluated against the
entity data.

Example definition:

	name: guard
	root:
	  type: selector
	  children:
	    - type: sequence
	      name: Fight
	      children:
	        - type: condition
	          expr: enemy_visible && hp > 3
	        - type: action
	          action: attack
	    - type: repeat
	      params: {times: 3}
	      child:
	        type: action
	        action: patrol

Compile it with:

	reg := registry.New[*blackboard.Board]()
	reg.RegisterFunc("attack", attack)
	reg.RegisterFunc("patrol", patrol)

	def, err := dsl.LoadFile("guard.yaml")
	tree, err := dsl.Compile(def, reg)
*/
package dsl
