package module

// 常见漏洞
// https://swcregistry.io/

type SWCData struct {
	ID          string
	Title       string
	Description string
}

var SWCDataMap = map[string]*SWCData{
	"105": {
		"105",
		"Unprotected Ether Withdrawal",
		"Due to missing or insufficient access controls, malicious parties can withdraw some or all Ether from the contract account.",
	},
	"106": {
		"106",
		"Unprotected SELFDESTRUCT Instruction",
		"Due to missing or insufficient access controls, malicious parties can self-destruct the contract.",
	},
	"127": {
		"127",
		"Arbitrary Jump with Function Type Variable",
		"Solidity supports function types. That is, a variable of function type can be assigned with a reference to a function with a matching signature. The function saved to such variable can be called just like a regular function. The problem arises when a user has the ability to arbitrarily change the function type variable and thus execute random code instructions. As Solidity doesn't support pointer arithmetics, it's impossible to change such variable to an arbitrary value. However, if the developer uses assembly instructions, such as mstore or assign operator, in the worst case scenario an attacker is able to point a function type variable to any code instruction, violating required validations and required state changes.",
	},
	// 下面几个不在SWC registry中
	"TokenDeposit": {
		"TokenDeposit",
		"Unauthorized Token Balance Increase",
		"A storage write can raise the attacker's entry in the token balance mapping above its previous value without a matching deposit.",
	},
	"TokenDrain": {
		"TokenDrain",
		"Unauthorized Token Balance Decrease",
		"A storage write can lower the attacker's entry in the token balance mapping below its previous value, which indicates tokens leaving the attacker's account through an unexpected path.",
	},
	"PoolLiveness": {
		"PoolLiveness",
		"Attacker Holds Pool Tokens",
		"After a call from the pool contract the attacker can end up holding a positive balance of the pool's token.",
	},
}
