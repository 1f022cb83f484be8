package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE companies (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				base_currency_code VARCHAR(3) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE users (
				id UUID PRIMARY KEY,
				company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL UNIQUE,
				role VARCHAR(50) NOT NULL CHECK (role IN ('Admin', 'Manager', 'Employee')),
				manager_id UUID REFERENCES users(id) ON DELETE SET NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_users_company_id ON users(company_id);

			CREATE TABLE approval_flows (
				id UUID PRIMARY KEY,
				company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				is_default BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_approval_flows_company_id ON approval_flows(company_id);

			CREATE TABLE approval_rules (
				id UUID PRIMARY KEY,
				company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				success_outcome VARCHAR(50) NOT NULL DEFAULT 'Approved',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE rule_conditions (
				id UUID PRIMARY KEY,
				rule_id UUID NOT NULL REFERENCES approval_rules(id) ON DELETE CASCADE,
				condition_type VARCHAR(50) NOT NULL CHECK (condition_type IN ('Percentage', 'SpecificUser', 'AmountThreshold')),
				condition_value TEXT NOT NULL,
				logic_operator VARCHAR(10) NOT NULL DEFAULT 'NONE' CHECK (logic_operator IN ('AND', 'OR', 'NONE'))
			);

			CREATE INDEX idx_rule_conditions_rule_id ON rule_conditions(rule_id);

			CREATE TABLE flow_steps (
				id UUID PRIMARY KEY,
				flow_id UUID NOT NULL REFERENCES approval_flows(id) ON DELETE CASCADE,
				step_order INTEGER NOT NULL,
				is_manager_approver BOOLEAN NOT NULL DEFAULT FALSE,
				approver_role VARCHAR(50),
				approver_user_id UUID REFERENCES users(id) ON DELETE SET NULL,
				rule_id UUID REFERENCES approval_rules(id) ON DELETE SET NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_flow_steps_flow_id_order ON flow_steps(flow_id, step_order);

			CREATE TABLE expenses (
				id UUID PRIMARY KEY,
				company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				submitter_id UUID NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
				amount NUMERIC(15, 2) NOT NULL,
				currency_code VARCHAR(3) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				expense_date TIMESTAMP WITH TIME ZONE NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('Draft', 'Pending', 'Approved', 'Rejected')),
				current_step_id UUID REFERENCES flow_steps(id) ON DELETE SET NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_expenses_status ON expenses(status);
			CREATE INDEX idx_expenses_submitter_id ON expenses(submitter_id);

			CREATE TABLE expense_approvals (
				id UUID PRIMARY KEY,
				expense_id UUID NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
				step_id UUID NOT NULL REFERENCES flow_steps(id) ON DELETE CASCADE,
				approver_id UUID NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
				status VARCHAR(50) NOT NULL CHECK (status IN ('Pending', 'Approved', 'Rejected')),
				comment TEXT NOT NULL DEFAULT '',
				approved_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- At most one decision per (expense, step, approver); the
			-- recorder relies on this for idempotent inserts.
			CREATE UNIQUE INDEX unique_approval_per_step ON expense_approvals(expense_id, step_id, approver_id);
			CREATE INDEX idx_expense_approvals_expense_id ON expense_approvals(expense_id);
		`,
	}
}
