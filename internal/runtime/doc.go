// Package runtime runs the external tools a bootstrap drives (virtualenv,
// pip, make, manage.py). It defines the stub-friendly Runner interface, the
// output suppression Policy, and the isolated Environment whose activation is
// applied to every command that runs after it is provisioned.
package runtime
